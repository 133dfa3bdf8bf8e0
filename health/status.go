package health

import (
	"regexp"
	"strings"
	"time"
)

// Pre-compiled regexes for error message sanitization
var (
	urlRegex         = regexp.MustCompile(`(?:https?|wss?|nats|tls)://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex        = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Level is a health level. Higher is worse.
type Level int

const (
	LevelHealthy Level = iota
	LevelDegraded
	LevelUnhealthy
)

func (l Level) String() string {
	switch l {
	case LevelHealthy:
		return "healthy"
	case LevelDegraded:
		return "degraded"
	default:
		return "unhealthy"
	}
}

// Status represents the health state of a component or of the process.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // Level.String()
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`

	level Level
}

// Metrics contains health-related counters.
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	ErrorCount        int64         `json:"error_count"`
	MessagesProcessed int64         `json:"messages_processed,omitempty"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

func newStatus(level Level, component, message string) Status {
	return Status{
		Component: component,
		Healthy:   level == LevelHealthy,
		Status:    level.String(),
		Message:   message,
		Timestamp: time.Now(),
		level:     level,
	}
}

// NewHealthy creates a healthy status.
func NewHealthy(component, message string) Status {
	return newStatus(LevelHealthy, component, message)
}

// NewDegraded creates a degraded status.
func NewDegraded(component, message string) Status {
	return newStatus(LevelDegraded, component, message)
}

// NewUnhealthy creates an unhealthy status.
func NewUnhealthy(component, message string) Status {
	return newStatus(LevelUnhealthy, component, message)
}

// FromError creates an unhealthy status whose message is the sanitized error.
// A nil error yields a healthy status.
func FromError(component string, err error) Status {
	if err == nil {
		return NewHealthy(component, "ok")
	}
	return NewUnhealthy(component, sanitizeErrorMessage(err.Error()))
}

// Level returns the status level.
func (s Status) Level() Level {
	return s.level
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.level == LevelHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.level == LevelDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.level == LevelUnhealthy
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// Aggregate combines sub-statuses into one whose level is the worst among
// them. No sub-statuses is healthy.
func Aggregate(component string, subStatuses []Status) Status {
	worst := LevelHealthy
	for _, sub := range subStatuses {
		if sub.level > worst {
			worst = sub.level
		}
	}

	var message string
	switch {
	case len(subStatuses) == 0:
		message = "no components registered"
	case worst == LevelUnhealthy:
		message = "one or more components are unhealthy"
	case worst == LevelDegraded:
		message = "one or more components are degraded"
	default:
		message = "all components are healthy"
	}

	status := newStatus(worst, component, message)
	if len(subStatuses) > 0 {
		status.SubStatuses = make([]Status, len(subStatuses))
		copy(status.SubStatuses, subStatuses)
	}
	return status
}

// sanitizeErrorMessage removes potentially sensitive information from error
// messages:
//   - URLs (http, https, ws, wss, nats, tls) become [URL]
//   - file paths become [PATH]
//   - IP addresses become [IP]
//   - port numbers become [PORT]
//   - credentials (password=X, token=X, key=X, secret=X) become [REDACTED]
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}

	// URLs before paths, as they contain paths
	sanitized := urlRegex.ReplaceAllString(err, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = windowsPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
			break
		}
	}
	return sanitized
}
