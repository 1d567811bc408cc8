// Package instrumentation wires OpenTelemetry metrics and tracing plus a
// structured audit trail around the MCP server.
//
// A Provider built from Config owns the exporter pipelines. Metrics cover
// the HTTP listeners, OAuth flows, Microsoft Graph calls and MCP tool
// invocations. Spans are started per tool invocation (tool.<name>), and the
// Graph client nests its own spans underneath (graph.<service>.<operation>).
// The AuditLogger writes one slog line per tool invocation, anonymizing
// folder paths unless PII is explicitly allowed.
//
// # Metrics
//
//   - http_requests_total / http_request_duration_seconds
//   - graph_api_operations_total / graph_api_operation_duration_seconds
//   - folder_path_resolutions_total (hit, miss, error)
//   - oauth_auth_total / oauth_token_refresh_total
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds
//
// # Configuration
//
// DefaultConfig reads the environment:
//
//   - INSTRUMENTATION_ENABLED: turn everything off in one place (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector address for the otlp exporters
//   - OTEL_TRACES_SAMPLER_ARG: head sampling ratio (default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: outlook-mcp)
//   - METRICS_DETAILED_LABELS: opt into high-cardinality folder labels
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII, AUDIT_LOGGING_LEVEL
//
// # Usage
//
//	provider, err := instrumentation.NewProvider(ctx, config)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	ctx, span := instrumentation.StartToolSpan(ctx, "list-emails")
//	defer span.End()
//
//	provider.Metrics().RecordToolInvocation(ctx, "list-emails",
//		instrumentation.StatusSuccess, time.Since(start))
package instrumentation
