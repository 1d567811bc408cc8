// Package server provides the MCP server context and the HTTP listeners
// around it.
//
// ServerContext carries the credential manager, a lazily created Microsoft
// Graph client, and optional metrics and audit instrumentation shared by all
// tool handlers.
//
// Three listeners run independently so each can be exposed (or not) on its
// own terms:
//
//   - AuthHTTPServer hosts the browser-facing authorization flow (/auth,
//     /auth/callback, /token-status) on the port of the registered redirect
//     URI.
//   - MCPHTTPServer hosts the MCP streamable HTTP transport on /mcp. MCP
//     clients connect without credentials; the server authenticates itself
//     to Microsoft.
//   - MetricsServer exposes /metrics for Prometheus scraping on a dedicated
//     port.
//
// HealthChecker supplies /healthz and /readyz handlers for the listeners
// that host them.
package server
