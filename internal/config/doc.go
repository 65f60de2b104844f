// Package config loads server settings from defaults, an optional YAML file
// and the environment, in increasing order of precedence. Command-line flags
// are applied on top by the cmd package.
//
// The YAML file is looked up under the XDG config directories as
// google-workspace-mcp/config.yaml:
//
//	google:
//	  client_id: "....apps.googleusercontent.com"
//	  client_secret: "..."
//	default_account: jane@example.com
//	read_only: true
//	store:
//	  type: sqlite
//	  sqlite_path: /var/lib/gwmcp/tokens.db
//	rate_limit:
//	  rps: 5
//	  burst: 10
package config
