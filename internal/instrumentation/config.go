package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Config controls how telemetry is produced and exported. The zero value is
// not usable; start from DefaultConfig, which reads the standard OTEL_*
// environment variables and this server's own knobs.
type Config struct {
	// ServiceName identifies this process in metrics and traces
	// (default: outlook-mcp).
	ServiceName string

	// ServiceVersion is stamped onto the OTel resource. The serve command
	// fills it in from the build version.
	ServiceVersion string

	// ServiceInstanceID distinguishes replicas; defaults to the hostname,
	// which under Kubernetes is the pod name.
	ServiceInstanceID string

	// K8sNamespace and K8sPodName are attached as resource attributes when
	// set, so dashboards can slice by deployment.
	K8sNamespace string
	K8sPodName   string

	// Enabled gates all of it. INSTRUMENTATION_ENABLED=false turns the
	// provider into a no-op without touching the rest of the server.
	Enabled bool

	// MetricsExporter is one of "prometheus", "otlp" or "stdout"
	// (default: prometheus).
	MetricsExporter string

	// TracingExporter is one of "otlp", "stdout" or "none" (default: none).
	TracingExporter string

	// OTLPEndpoint is the collector address without a scheme, e.g.
	// "localhost:4318". Required when either exporter is "otlp".
	OTLPEndpoint string

	// OTLPInsecure switches OTLP export to plain HTTP. Spans carry mailbox
	// metadata, so leave this off outside local development.
	OTLPInsecure bool

	// TraceSamplingRate is the head sampling ratio, 0.0 to 1.0
	// (default: 0.1).
	TraceSamplingRate float64

	// PrometheusEndpoint is the scrape path on the metrics listener
	// (default: /metrics).
	PrometheusEndpoint string

	// DetailedLabels opts into high-cardinality labels such as resolved
	// folder paths. Folder paths are user-controlled input, so production
	// deployments should keep this off.
	DetailedLabels bool

	// AuditLogging configures the audit trail written alongside metrics.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the audit trail of tool invocations.
type AuditLoggingConfig struct {
	// Enabled turns audit logging on (default: true).
	Enabled bool

	// IncludePII logs raw folder paths instead of anonymized hashes.
	// Only enable when the log destination is access-controlled.
	IncludePII bool

	// LogLevel is the slog level audit entries are emitted at: "debug",
	// "info", "warn" or "error" (default: info). Failed invocations are
	// never emitted below WARN.
	LogLevel string
}

// DefaultConfig builds a Config from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:        envOr("OTEL_SERVICE_NAME", "outlook-mcp"),
		ServiceVersion:     "unknown",
		ServiceInstanceID:  envOr("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:       envOr("K8S_NAMESPACE", envOr("POD_NAMESPACE", "")),
		K8sPodName:         envOr("K8S_POD_NAME", envOr("HOSTNAME", "")),
		Enabled:            envBoolOr("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:    envOr("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:    envOr("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:       envOr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       envBoolOr("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:  envFloatOr("OTEL_TRACES_SAMPLER_ARG", 0.1),
		PrometheusEndpoint: envOr("PROMETHEUS_ENDPOINT", "/metrics"),
		DetailedLabels:     envBoolOr("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    envBoolOr("AUDIT_LOGGING_ENABLED", true),
			IncludePII: envBoolOr("AUDIT_LOGGING_INCLUDE_PII", false),
			LogLevel:   envOr("AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

// Validate rejects configurations the provider cannot honor.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" {
		if c.TracingExporter == ExporterOTLP {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
		if c.MetricsExporter == ExporterOTLP {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// Label values shared between the metrics and audit layers.
const (
	// Tool and Graph operation outcomes.
	StatusSuccess = "success"
	StatusError   = "error"

	// Folder path resolution outcomes.
	FolderResolutionHit   = "hit"
	FolderResolutionMiss  = "miss"
	FolderResolutionError = "error"

	// Exporter selection.
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
