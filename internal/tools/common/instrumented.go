package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/outlook-mcp/internal/instrumentation"
	"github.com/teemow/outlook-mcp/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with invocation metrics and
// audit logging. When the server context carries neither, the handler runs
// undecorated.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(
	toolName string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		folder := GetFolderFromArgs(request.GetArguments())

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx)
		if folder != "" {
			invocation.WithFolder(folder)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := completeInvocation(invocation, result, err)

		if metrics != nil {
			metrics.RecordToolInvocationWithFolder(ctx, toolName, status, folder, duration)
		}
		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

// InstrumentedToolHandlerWithService is like InstrumentedToolHandler but also
// tags the invocation with the Graph surface and operation type, and runs the
// handler inside a tool span so Graph requests triggered by the handler share
// a trace.
//
// Graph operation counters are not recorded here; the graph client records
// them per request, and a single tool invocation may issue several requests.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandlerWithService("my_tool", "mail", "list", sc, handler))
func InstrumentedToolHandlerWithService(
	toolName string,
	serviceName string,
	operation string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		folder := GetFolderFromArgs(request.GetArguments())

		spanCtx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithService(serviceName).
				WithOperation(operation).
				WithFolder(folder).
				Build()...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(spanCtx).
			WithService(serviceName, operation)
		if folder != "" {
			invocation.WithFolder(folder)
		}

		result, err := handler(spanCtx, request)
		duration := time.Since(start)

		status := completeInvocation(invocation, result, err)
		switch {
		case err != nil:
			instrumentation.SetSpanError(span, err)
		case status == instrumentation.StatusError:
			instrumentation.AddSpanEvent(span, "tool_error_result")
		default:
			instrumentation.SetSpanSuccess(span)
		}

		if metrics != nil {
			metrics.RecordToolInvocationWithFolder(ctx, toolName, status, folder, duration)
		}
		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

// completeInvocation stamps the invocation outcome and returns the metric
// status label. A handler reports failure either through a Go error or
// through an MCP error result; both count as an error here.
func completeInvocation(invocation *instrumentation.ToolInvocation, result *mcp.CallToolResult, err error) string {
	switch {
	case err != nil:
		invocation.CompleteWithError(err)
		return instrumentation.StatusError
	case result != nil && result.IsError:
		invocation.Complete(false, nil)
		return instrumentation.StatusError
	default:
		invocation.CompleteSuccess()
		return instrumentation.StatusSuccess
	}
}
