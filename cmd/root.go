package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the google-workspace-mcp application
var rootCmd = &cobra.Command{
	Use:   "google-workspace-mcp",
	Short: "MCP server for Google Drive, Sheets and Docs",
	Long: `google-workspace-mcp exposes Google Drive, Sheets and Docs operations as
Model Context Protocol (MCP) tools for AI assistants.

Each Google account signs in once with OAuth2. Tokens are kept in a local
document store keyed by email and refreshed automatically.

It can run as:
  - An MCP server over stdio (default)
  - An MCP server over streamable HTTP for local debugging`,
	SilenceUsage: true,
}

var (
	configPath string
	debugMode  bool
)

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "google-workspace-mcp version %s\n" .Version}}`)

	// MCP clients launch the binary without arguments.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file (default: $XDG_CONFIG_HOME/google-workspace-mcp/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
