package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// IOError is a transient file-system failure, typically the host holding or
// rewriting the same file. The poll loop retries it on the next cycle.
type IOError struct {
	Op   string // "read", "write", "remove"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) IsRetriable() bool {
	return true
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a retriable file-system error
func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// MalformedContentError reports a stream file whose content could not be parsed.
// Prior state is kept and no event fires.
type MalformedContentError struct {
	Stream Stream
	Err    error
}

func (e *MalformedContentError) Error() string {
	return "malformed " + string(e.Stream) + " content: " + e.Err.Error()
}

// IsRetriable is false: the same bytes will fail again until the host rewrites them.
func (e *MalformedContentError) IsRetriable() bool {
	return false
}

func (e *MalformedContentError) Unwrap() error {
	return e.Err
}

// NewMalformedContentError wraps a decode failure for a stream
func NewMalformedContentError(stream Stream, err error) *MalformedContentError {
	return &MalformedContentError{Stream: stream, Err: err}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrDirNotFound is returned when the MetaTrader directory does not exist. Fatal.
	ErrDirNotFound = errors.New("directory not found")

	// ErrSendTimeout is returned when no command slot became free within the retry window.
	ErrSendTimeout = errors.New("no free command slot before deadline")

	// ErrInvalidPayload is returned when a command argument would break the wire line.
	ErrInvalidPayload = errors.New("invalid command payload")

	// ErrInvalidOrderType is returned for order types the host does not know.
	ErrInvalidOrderType = errors.New("invalid order type")

	// ErrStopped is returned when an operation is attempted on a stopped client.
	ErrStopped = errors.New("client stopped")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
