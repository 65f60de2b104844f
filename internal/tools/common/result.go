package common

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// JSONResult returns a success result made of a summary line followed by v
// as indented JSON.
func JSONResult(summary string, v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to format result: %v", err))
	}
	if summary == "" {
		return mcp.NewToolResultText(string(data))
	}
	return mcp.NewToolResultText(summary + "\n\n" + string(data))
}

// InvalidArgument reports input validation failures.
func InvalidArgument(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("Invalid arguments: " + err.Error())
}
