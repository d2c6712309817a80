package ports

// Diagnostics is the write-only message channel users watch while a batch runs.
type Diagnostics interface {
	Printf(format string, args ...any)
}

// ErrorCategory selects the error log a failure is appended to.
type ErrorCategory string

const (
	CategoryMain  ErrorCategory = "main"
	CategoryBlock ErrorCategory = "block"
)

// ErrorLog is an append-only error log per category.
type ErrorLog interface {
	Append(category ErrorCategory, subject string, err error) error
}
