package drive_tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/drive"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/batch"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/common"
)

const defaultMaxResults = 100

// listResponse is returned by the list and search tools.
type listResponse struct {
	Files         []*drive.FileInfo `json:"files"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

// downloadResult is the per-file result of drive_download_files.
type downloadResult struct {
	*drive.Download
	Size          int    `json:"size"`
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"contentBase64,omitempty"`
}

func registerFileTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listFilesTool := mcp.NewTool("drive_list_files",
		mcp.WithDescription("List files in Google Drive, optionally filtered by a Drive query or folder"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("query",
			mcp.Description("Drive search query, e.g. \"mimeType='application/pdf'\" or \"name contains 'report'\""),
		),
		mcp.WithString("folderId",
			mcp.Description("Only list direct children of this folder"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of files to return (default: 100, max: 1000)"),
		),
		mcp.WithString("orderBy",
			mcp.Description("Sort order, e.g. 'modifiedTime desc' or 'folder,name'"),
		),
		mcp.WithString("pageToken",
			mcp.Description("Token from a previous call to fetch the next page"),
		),
		mcp.WithBoolean("includeTrashed",
			mcp.Description("Include trashed files (default: false)"),
		),
	)
	s.AddTool(listFilesTool, common.InstrumentedToolHandlerWithService("drive_list_files", instrumentation.ServiceDrive, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			options, err := listOptions(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			options.Query = common.OptionalString(args, "query", "")
			options.OrderBy = common.OptionalString(args, "orderBy", "")
			options.IncludeTrashed = common.OptionalBool(args, "includeTrashed", false)

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "list files", err), nil
			}
			files, next, err := client.ListFiles(ctx, options)
			if err != nil {
				return common.ErrorResult(account, "list files", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Found %d file(s)", len(files)), listResponse{Files: files, NextPageToken: next}), nil
		}))

	searchFilesTool := mcp.NewTool("drive_search_files",
		mcp.WithDescription("Full-text search for files in Google Drive by name and content"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to search for"),
		),
		mcp.WithString("folderId",
			mcp.Description("Only search direct children of this folder"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of files to return (default: 100, max: 1000)"),
		),
		mcp.WithString("pageToken",
			mcp.Description("Token from a previous call to fetch the next page"),
		),
	)
	s.AddTool(searchFilesTool, common.InstrumentedToolHandlerWithService("drive_search_files", instrumentation.ServiceDrive, instrumentation.OperationSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			text, err := common.RequiredString(args, "text")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			options, err := listOptions(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "search files", err), nil
			}
			files, next, err := client.SearchFiles(ctx, text, options)
			if err != nil {
				return common.ErrorResult(account, "search files", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Found %d file(s) matching %q", len(files), text), listResponse{Files: files, NextPageToken: next}), nil
		}))

	getFilesTool := mcp.NewTool("drive_get_files",
		mcp.WithDescription("Get metadata for one or more files in Google Drive"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileIds",
			mcp.Required(),
			mcp.Description("File ID (string) or array of file IDs"),
		),
	)
	s.AddTool(getFilesTool, common.InstrumentedToolHandlerWithService("drive_get_files", instrumentation.ServiceDrive, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileIDs, err := batch.ParseStringOrArray(args["fileIds"], "fileIds")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "get files", err), nil
			}

			results := batch.ProcessBatch(fileIDs, func(fileID string) (interface{}, error) {
				file, err := client.GetFile(ctx, fileID)
				if err != nil {
					return nil, common.BatchError(account, "get file "+fileID, err)
				}
				return file, nil
			})
			return batch.ToolResult(results), nil
		}))

	downloadFilesTool := mcp.NewTool("drive_download_files",
		mcp.WithDescription("Download the content of one or more files. Google Docs and Slides are exported as plain text, Sheets as CSV"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileIds",
			mcp.Required(),
			mcp.Description("File ID (string) or array of file IDs to download"),
		),
		mcp.WithString("exportMimeType",
			mcp.Description("Export format for Google-native files, e.g. 'text/markdown', 'application/pdf' or 'text/html'"),
		),
		mcp.WithNumber("maxBytes",
			mcp.Description("Maximum bytes to read per file (default: 10485760). Larger files are truncated"),
		),
		mcp.WithBoolean("asBase64",
			mcp.Description("Return content base64 encoded. Binary content is always base64 encoded"),
		),
	)
	s.AddTool(downloadFilesTool, common.InstrumentedToolHandlerWithService("drive_download_files", instrumentation.ServiceDrive, instrumentation.OperationExport, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileIDs, err := batch.ParseStringOrArray(args["fileIds"], "fileIds")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			maxBytes, err := common.OptionalInt(args, "maxBytes", drive.DefaultMaxDownloadBytes)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			exportMimeType := common.OptionalString(args, "exportMimeType", "")
			asBase64 := common.OptionalBool(args, "asBase64", false)

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "download files", err), nil
			}

			results := batch.ProcessBatch(fileIDs, func(fileID string) (interface{}, error) {
				dl, err := client.DownloadFile(ctx, fileID, exportMimeType, maxBytes)
				if err != nil {
					return nil, common.BatchError(account, "download file "+fileID, err)
				}
				return newDownloadResult(dl, asBase64), nil
			})
			return batch.ToolResult(results), nil
		}))

	if readOnly {
		return nil
	}

	uploadFileTool := mcp.NewTool("drive_upload_file",
		mcp.WithDescription("Upload a new file to Google Drive"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the new file"),
		),
		mcp.WithString("content",
			mcp.Description("Text content of the file"),
		),
		mcp.WithString("contentBase64",
			mcp.Description("Base64-encoded content, for binary files. Takes precedence over content"),
		),
		mcp.WithString("mimeType",
			mcp.Description("MIME type of the file (detected when omitted)"),
		),
		mcp.WithString("parentFolders",
			mcp.Description("Comma-separated or array of parent folder IDs"),
		),
		mcp.WithString("description",
			mcp.Description("File description"),
		),
	)
	s.AddTool(uploadFileTool, common.InstrumentedToolHandlerWithService("drive_upload_file", instrumentation.ServiceDrive, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			name, err := common.RequiredString(args, "name")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			content, err := uploadContent(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			parents, err := common.StringList(args, "parentFolders")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "upload file", err), nil
			}
			file, err := client.UploadFile(ctx, name, strings.NewReader(content), &drive.UploadOptions{
				ParentFolders: parents,
				Description:   common.OptionalString(args, "description", ""),
				MimeType:      common.OptionalString(args, "mimeType", ""),
			})
			if err != nil {
				return common.ErrorResult(account, "upload file", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Uploaded %s (%s)", file.Name, file.ID), file), nil
		}))

	copyFileTool := mcp.NewTool("drive_copy_file",
		mcp.WithDescription("Copy a file in Google Drive"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("ID of the file to copy"),
		),
		mcp.WithString("name",
			mcp.Description("Name of the copy (default: 'Copy of ...')"),
		),
		mcp.WithString("parentFolders",
			mcp.Description("Comma-separated or array of folder IDs to place the copy in"),
		),
	)
	s.AddTool(copyFileTool, common.InstrumentedToolHandlerWithService("drive_copy_file", instrumentation.ServiceDrive, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileID, err := common.RequiredString(args, "fileId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			parents, err := common.StringList(args, "parentFolders")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "copy file", err), nil
			}
			file, err := client.CopyFile(ctx, fileID, common.OptionalString(args, "name", ""), parents)
			if err != nil {
				return common.ErrorResult(account, "copy file", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Copied %s to %s (%s)", fileID, file.Name, file.ID), file), nil
		}))

	renameFileTool := mcp.NewTool("drive_rename_file",
		mcp.WithDescription("Rename a file or folder in Google Drive"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("ID of the file to rename"),
		),
		mcp.WithString("newName",
			mcp.Required(),
			mcp.Description("New name"),
		),
	)
	s.AddTool(renameFileTool, common.InstrumentedToolHandlerWithService("drive_rename_file", instrumentation.ServiceDrive, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileID, err := common.RequiredString(args, "fileId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			newName, err := common.RequiredString(args, "newName")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "rename file", err), nil
			}
			file, err := client.RenameFile(ctx, fileID, newName)
			if err != nil {
				return common.ErrorResult(account, "rename file", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Renamed %s to %s", fileID, file.Name), file), nil
		}))

	moveFileTool := mcp.NewTool("drive_move_file",
		mcp.WithDescription("Move a file by adding and removing parent folders"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("ID of the file to move"),
		),
		mcp.WithString("addParents",
			mcp.Description("Comma-separated or array of folder IDs to add"),
		),
		mcp.WithString("removeParents",
			mcp.Description("Comma-separated or array of folder IDs to remove"),
		),
	)
	s.AddTool(moveFileTool, common.InstrumentedToolHandlerWithService("drive_move_file", instrumentation.ServiceDrive, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileID, err := common.RequiredString(args, "fileId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			addParents, err := common.StringList(args, "addParents")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			removeParents, err := common.StringList(args, "removeParents")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			if len(addParents) == 0 && len(removeParents) == 0 {
				return common.InvalidArgument(fmt.Errorf("addParents or removeParents is required")), nil
			}

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "move file", err), nil
			}
			file, err := client.MoveFile(ctx, fileID, &drive.MoveOptions{AddParents: addParents, RemoveParents: removeParents})
			if err != nil {
				return common.ErrorResult(account, "move file", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Moved %s", file.Name), file), nil
		}))

	trashFilesTool := mcp.NewTool("drive_trash_files",
		mcp.WithDescription("Move one or more files to the Google Drive trash"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileIds",
			mcp.Required(),
			mcp.Description("File ID (string) or array of file IDs to trash"),
		),
	)
	s.AddTool(trashFilesTool, common.InstrumentedToolHandlerWithService("drive_trash_files", instrumentation.ServiceDrive, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileIDs, err := batch.ParseStringOrArray(args["fileIds"], "fileIds")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "trash files", err), nil
			}

			results := batch.ProcessBatch(fileIDs, func(fileID string) (interface{}, error) {
				if _, err := client.TrashFile(ctx, fileID); err != nil {
					return nil, common.BatchError(account, "trash file "+fileID, err)
				}
				return fmt.Sprintf("File %s moved to trash", fileID), nil
			})
			return batch.ToolResult(results), nil
		}))

	deleteFilesTool := mcp.NewTool("drive_delete_files",
		mcp.WithDescription("Permanently delete one or more files from Google Drive, bypassing the trash"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileIds",
			mcp.Required(),
			mcp.Description("File ID (string) or array of file IDs to delete"),
		),
	)
	s.AddTool(deleteFilesTool, common.InstrumentedToolHandlerWithService("drive_delete_files", instrumentation.ServiceDrive, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileIDs, err := batch.ParseStringOrArray(args["fileIds"], "fileIds")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "delete files", err), nil
			}

			results := batch.ProcessBatch(fileIDs, func(fileID string) (interface{}, error) {
				if err := client.DeleteFile(ctx, fileID); err != nil {
					return nil, common.BatchError(account, "delete file "+fileID, err)
				}
				return fmt.Sprintf("File %s deleted successfully", fileID), nil
			})
			return batch.ToolResult(results), nil
		}))

	return nil
}

func listOptions(args map[string]interface{}) (*drive.ListOptions, error) {
	maxResults, err := common.OptionalInt(args, "maxResults", defaultMaxResults)
	if err != nil {
		return nil, err
	}
	if maxResults < 1 || maxResults > 1000 {
		return nil, fmt.Errorf("maxResults must be between 1 and 1000")
	}
	return &drive.ListOptions{
		FolderID:   common.OptionalString(args, "folderId", ""),
		MaxResults: int(maxResults),
		PageToken:  common.OptionalString(args, "pageToken", ""),
	}, nil
}

func uploadContent(args map[string]interface{}) (string, error) {
	if encoded := common.OptionalString(args, "contentBase64", ""); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("contentBase64 is not valid base64: %w", err)
		}
		return string(data), nil
	}
	content, ok := args["content"].(string)
	if !ok {
		return "", fmt.Errorf("content or contentBase64 is required")
	}
	return content, nil
}

func newDownloadResult(dl *drive.Download, asBase64 bool) downloadResult {
	res := downloadResult{Download: dl, Size: len(dl.Content)}
	if asBase64 || !utf8.Valid(dl.Content) {
		res.ContentBase64 = base64.StdEncoding.EncodeToString(dl.Content)
	} else {
		res.Content = string(dl.Content)
	}
	return res
}
