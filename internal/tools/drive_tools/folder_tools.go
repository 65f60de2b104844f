package drive_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/common"
)

// registerFolderTools registers folder and drive-level tools
func registerFolderTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	aboutTool := mcp.NewTool("drive_get_about",
		mcp.WithDescription("Get the Drive user and storage quota for an account"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
	)
	s.AddTool(aboutTool, common.InstrumentedToolHandlerWithService("drive_get_about", instrumentation.ServiceDrive, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			account := common.GetAccountFromArgs(ctx, sc, request.GetArguments())

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "get Drive info", err), nil
			}
			about, err := client.GetAbout(ctx)
			if err != nil {
				return common.ErrorResult(account, "get Drive info", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Drive of %s", about.User.EmailAddress), about), nil
		}))

	if readOnly {
		return nil
	}

	createFolderTool := mcp.NewTool("drive_create_folder",
		mcp.WithDescription("Create a new folder in Google Drive"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the folder"),
		),
		mcp.WithString("parentFolders",
			mcp.Description("Comma-separated or array of parent folder IDs (default: My Drive root)"),
		),
	)
	s.AddTool(createFolderTool, common.InstrumentedToolHandlerWithService("drive_create_folder", instrumentation.ServiceDrive, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			name, err := common.RequiredString(args, "name")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			parents, err := common.StringList(args, "parentFolders")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DriveClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "create folder", err), nil
			}
			folder, err := client.CreateFolder(ctx, name, parents)
			if err != nil {
				return common.ErrorResult(account, "create folder", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Created folder %s (%s)", folder.Name, folder.ID), folder), nil
		}))

	return nil
}
