package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"golang.org/x/oauth2"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

const otherCategory = "Other"

var toolCategories = map[string]string{
	"auth":   "Account Tools",
	"drive":  "Google Drive Tools",
	"sheets": "Google Sheets Tools",
	"docs":   "Google Docs Tools",
}

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
The registered tools are introspected, so the reference always matches the
tools the server actually exposes. Each tool is marked read-only or write.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(out io.Writer, outputFile string) error {
	all, err := docsToolSet(false)
	if err != nil {
		return err
	}
	readOnly, err := docsToolSet(true)
	if err != nil {
		return err
	}

	readOnlyNames := make(map[string]bool, len(readOnly))
	for _, tool := range readOnly {
		readOnlyNames[tool.Name] = true
	}

	markdown := generateToolsMarkdown(all, readOnlyNames)
	if outputFile == "" {
		_, err := io.WriteString(out, markdown)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	return nil
}

// docsToolSet lists the tools a server registers in the given mode. No
// credentials are needed; an empty in-memory store is enough.
func docsToolSet(readOnly bool) ([]mcp.Tool, error) {
	store := tokenstore.NewMemoryStore(nil)
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Provider: google.NewStoreTokenProvider(&oauth2.Config{}, store, google.StoreTokenProviderOptions{}),
		Store:    store,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, sc, readOnly); err != nil {
		return nil, err
	}

	tools := make([]mcp.Tool, 0)
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	return tools, nil
}

// generateToolsMarkdown renders the reference. readOnlyNames marks the tools
// available without --yolo.
func generateToolsMarkdown(tools []mcp.Tool, readOnlyNames map[string]bool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running google-workspace-mcp as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	byCategory := groupToolsByCategory(tools)
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s) (%d)\n", category, anchor, len(byCategory[category]))
	}
	sb.WriteString("\n")

	sb.WriteString("## Multi-Account Support\n\n")
	sb.WriteString("Every Drive, Sheets and Docs tool accepts an optional `account` argument: the email of a signed-in Google account.\n\n")
	sb.WriteString("- **Resolution order:** trusted proxy identity, then `account`, then the configured `default_account`, then the only signed-in account\n")
	sb.WriteString("- **Signing in:** use `auth_start` and `auth_complete`, or run `google-workspace-mcp auth login`\n")
	sb.WriteString("- **Write tools:** only registered when the server runs with `--yolo`\n\n")

	for _, category := range categories {
		categoryTools := byCategory[category]
		slices.SortFunc(categoryTools, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })

		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool, readOnlyNames[tool.Name]))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}
	return categories
}

func getCategoryFromToolName(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	if category, ok := toolCategories[prefix]; ok {
		return category
	}
	return otherCategory
}

func generateToolMarkdown(tool mcp.Tool, readOnly bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}
	if readOnly {
		sb.WriteString("**Mode:** read-only\n\n")
	} else {
		sb.WriteString("**Mode:** write (requires `--yolo`)\n\n")
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return sb.String()
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("**Arguments:**\n")
	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		propType := getPropertyType(prop)
		required := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "required"
		}

		desc, ok := prop["description"].(string)
		if !ok {
			desc = propType + " parameter"
		}
		fmt.Fprintf(&sb, "- `%s` (%s, %s): %s\n", name, propType, required, desc)
	}
	sb.WriteString("\n")

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
