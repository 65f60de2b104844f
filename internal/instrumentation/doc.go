// Package instrumentation wires OpenTelemetry metrics, tracing and the tool
// audit log for the Google Workspace MCP server.
//
// # Metrics
//
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: by tool and status
//   - google_api_operations_total, google_api_operation_duration_seconds: by service, operation and status
//   - google_api_retries_total: by the HTTP status that caused the retry
//   - oauth_auth_total: consent completions by result
//   - oauth_token_refresh_total: refreshes by result (success, failure, expired)
//   - http_requests_total, http_request_duration_seconds: callback, health and MCP HTTP endpoints
//
// Metrics are exported with Prometheus (a dedicated registry served by
// Provider.Handler), OTLP/HTTP or stdout. Accounts only appear on metrics
// and spans as hashes.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: google-workspace-mcp)
//   - METRICS_DETAILED_LABELS, AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
package instrumentation
