package drive_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/drive"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/batch"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/common"
)

// registerShareTools registers file sharing and permission management tools
func registerShareTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listPermissionsTool := mcp.NewTool("drive_list_permissions",
		mcp.WithDescription("List all permissions for a file in Google Drive"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The ID of the file"),
		),
	)
	s.AddTool(listPermissionsTool, common.InstrumentedToolHandlerWithService("drive_list_permissions", instrumentation.ServiceDrive, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileID, err := common.RequiredString(args, "fileId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "list permissions", err), nil
			}
			permissions, err := client.ListPermissions(ctx, fileID)
			if err != nil {
				return common.ErrorResult(account, "list permissions", err), nil
			}
			return common.JSONResult(fmt.Sprintf("File %s has %d permission(s)", fileID, len(permissions)), permissions), nil
		}))

	if readOnly {
		return nil
	}

	shareFilesTool := mcp.NewTool("drive_share_files",
		mcp.WithDescription("Share one or more files in Google Drive by granting permissions"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileIds",
			mcp.Required(),
			mcp.Description("File ID (string) or array of file IDs to share"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("The type of grantee: 'user', 'group', 'domain', or 'anyone'"),
			mcp.Enum("user", "group", "domain", "anyone"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("The role to grant: 'owner', 'organizer', 'fileOrganizer', 'writer', 'commenter', or 'reader'"),
		),
		mcp.WithString("emailAddress",
			mcp.Description("Email address (required if type is 'user' or 'group')"),
		),
		mcp.WithString("domain",
			mcp.Description("Domain name (required if type is 'domain')"),
		),
		mcp.WithBoolean("sendNotificationEmail",
			mcp.Description("Send a notification email to the grantee (default: false)"),
		),
		mcp.WithString("emailMessage",
			mcp.Description("Custom message to include in the notification email"),
		),
	)
	s.AddTool(shareFilesTool, common.InstrumentedToolHandlerWithService("drive_share_files", instrumentation.ServiceDrive, instrumentation.OperationShare, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileIDs, err := batch.ParseStringOrArray(args["fileIds"], "fileIds")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			options := &drive.ShareOptions{
				Type:                  common.OptionalString(args, "type", ""),
				Role:                  common.OptionalString(args, "role", ""),
				EmailAddress:          common.OptionalString(args, "emailAddress", ""),
				Domain:                common.OptionalString(args, "domain", ""),
				SendNotificationEmail: common.OptionalBool(args, "sendNotificationEmail", false),
				EmailMessage:          common.OptionalString(args, "emailMessage", ""),
			}
			if err := options.Validate(); err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "share files", err), nil
			}

			results := batch.ProcessBatch(fileIDs, func(fileID string) (interface{}, error) {
				permission, err := client.ShareFile(ctx, fileID, options)
				if err != nil {
					return nil, common.BatchError(account, "share file "+fileID, err)
				}
				return permission, nil
			})
			return batch.ToolResult(results), nil
		}))

	removePermissionTool := mcp.NewTool("drive_remove_permission",
		mcp.WithDescription("Remove a permission from a file in Google Drive"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The ID of the file"),
		),
		mcp.WithString("permissionId",
			mcp.Required(),
			mcp.Description("The ID of the permission to remove (see drive_list_permissions)"),
		),
	)
	s.AddTool(removePermissionTool, common.InstrumentedToolHandlerWithService("drive_remove_permission", instrumentation.ServiceDrive, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			fileID, err := common.RequiredString(args, "fileId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			permissionID, err := common.RequiredString(args, "permissionId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "remove permission", err), nil
			}
			if err := client.RemovePermission(ctx, fileID, permissionID); err != nil {
				return common.ErrorResult(account, "remove permission", err), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Permission %s removed from file %s", permissionID, fileID)), nil
		}))

	return nil
}
