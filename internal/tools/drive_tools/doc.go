// Package drive_tools provides MCP tools for Google Drive.
//
// Read tools:
//   - drive_list_files, drive_search_files: list or full-text search files
//   - drive_get_files: metadata for one or more files
//   - drive_download_files: content of one or more files; Google Docs,
//     Sheets and Slides are exported to text formats
//   - drive_list_permissions, drive_get_about
//
// Write tools, registered only when the server is not read-only:
//   - drive_upload_file, drive_create_folder, drive_copy_file
//   - drive_rename_file, drive_move_file
//   - drive_trash_files, drive_delete_files
//   - drive_share_files, drive_remove_permission
//
// Tools that take fileIds accept a single ID, an array, or a JSON array
// string, and report a result per file.
package drive_tools
