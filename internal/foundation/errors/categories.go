package errors

// ErrorCategory groups errors by the component that failed. Adapters map it to
// HTTP status codes and CLI exit codes.
type ErrorCategory string

const (
	// Caller mistakes: bad config, malformed messages, unknown ids, refusals.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryRefused    ErrorCategory = "refused"

	// Persistence: the settings/stats key-value store and the history store.
	CategoryStorage    ErrorCategory = "storage"
	CategoryEventStore ErrorCategory = "eventstore"

	// Browser side: the bridge, NATS, and tab commands.
	CategoryTransport ErrorCategory = "transport"
	CategoryTabs      ErrorCategory = "tabs"

	// Process side.
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity picks the log level an adapter uses.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy hints whether a caller may resend.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryImmediate  RetryStrategy = "immediate"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user" // fix config or input first
)

// ErrorContext holds key/value details rendered in messages and HTTP payloads.
type ErrorContext map[string]any

// Set stores value under key, allocating the map on first use.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// GetString returns the value under key when it is a string.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}
