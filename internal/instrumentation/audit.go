package instrumentation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"
)

// ToolInvocation is one audit record: which tool ran, against which Graph
// surface and folder, how long it took and how it ended.
//
// The folder path is the one piece of user-controlled mailbox structure in
// the record. The audit logger reduces it to a stable hash unless it is
// configured to include PII.
type ToolInvocation struct {
	Tool string

	ServiceName string // Graph surface (mail, folders, calendar, rules)
	Operation   string // operation type (list, get, create, delete, send, move)
	Folder      string // target mail folder path, when the tool is folder-scoped

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts the record with timing running. Call one of the
// Complete methods when the tool returns.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithService tags the record with the Graph surface and operation type.
func (ti *ToolInvocation) WithService(serviceName, operation string) *ToolInvocation {
	ti.ServiceName = serviceName
	ti.Operation = operation
	return ti
}

// WithFolder tags the record with the target mail folder path.
func (ti *ToolInvocation) WithFolder(folder string) *ToolInvocation {
	ti.Folder = folder
	return ti
}

// WithSpanContext copies trace identifiers from the span in ctx so audit
// lines join up with exported traces.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete stamps the duration and outcome.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation failed with err.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// attrs renders the record for slog. With includePII the folder path is
// logged verbatim; otherwise it is anonymized so operators can correlate
// lines without reading mailbox structure out of shipped logs.
func (ti *ToolInvocation) attrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.ServiceName != "" {
		attrs = append(attrs, slog.String("service", ti.ServiceName))
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation))
	}
	if ti.Folder != "" {
		folder := ti.Folder
		if !includePII {
			folder = AnonymizeFolderPath(folder)
		}
		attrs = append(attrs, slog.String("folder", folder))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// AnonymizeFolderPath reduces a mail folder path to a short stable hash,
// e.g. "folder:3f2a9c01". Case differences hash alike so the same folder
// stays correlatable across invocations. Empty input stays empty.
func AnonymizeFolderPath(path string) string {
	if path == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(path)))
	return "folder:" + hex.EncodeToString(sum[:4])
}

// AuditLogger writes one line per tool invocation. It is nil-safe to skip
// entirely; a disabled logger drops every record.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
	level      slog.Level
}

// NewAuditLogger returns an enabled audit logger that anonymizes folder
// paths, logging at INFO.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, LogLevel: "info"})
}

// NewAuditLoggerWithConfig builds an audit logger from configuration. A nil
// logger falls back to slog.Default.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
		level:      parseLogLevel(config.LogLevel),
	}
}

// parseLogLevel maps the config's level name to a slog level, defaulting to
// INFO for anything unrecognized.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogToolInvocation writes the audit line for one tool call. Successful
// calls log at the configured level; failures are raised to WARN so they
// surface even when successes are filtered out.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if !al.enabled {
		return
	}

	level := al.level
	msg := "tool_executed"
	if !ti.Success {
		msg = "tool_failed"
		if level < slog.LevelWarn {
			level = slog.LevelWarn
		}
	}

	al.logger.LogAttrs(context.Background(), level, msg, ti.attrs(al.includePII)...)
}
