package sheets_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/server"
)

// RegisterSheetsTools registers all Google Sheets tools with the MCP server
func RegisterSheetsTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := registerValueTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register value tools: %w", err)
	}

	if err := registerStructureTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register structure tools: %w", err)
	}

	return nil
}
