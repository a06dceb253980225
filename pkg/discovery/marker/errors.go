package marker

import (
	"errors"
	"fmt"
)

var (
	// ErrNesting indicates a marker appeared where the block structure does not allow it:
	// a duplicate start, an unmatched end, a marker outside a render section,
	// or a render section left open at end of file.
	ErrNesting = errors.New("malformed marker nesting")

	// ErrAmbiguousTemplateSource indicates that a render block names more than one
	// of 'template-file', 'template' and an inline template.
	ErrAmbiguousTemplateSource = errors.New("ambiguous template source")

	// ErrTemplateFileNotFound indicates that none of the candidate paths for a
	// template file exist.
	ErrTemplateFileNotFound = errors.New("template file not found")

	// ErrUnknownTemplate indicates a 'template=' property naming no built-in template,
	// reported only when no other explicit template source resolves for the block.
	ErrUnknownTemplate = errors.New("unknown template name")

	// ErrInvalidLocation indicates a render location that is out of range, overlaps
	// another location or is not in document order.
	ErrInvalidLocation = errors.New("invalid render location")
)

// Error is a position-aware diagnostic produced while scanning a file.
// It unwraps to one of the package sentinels.
type Error struct {
	Err     error
	Line    int
	Path    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(sentinel error, line int, path, format string, args ...any) *Error {
	return &Error{
		Err:     sentinel,
		Line:    line,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

// Warning is a non-fatal diagnostic returned alongside a successful scan.
type Warning struct {
	Line    int
	Path    string
	Message string
}

func (w Warning) String() string { return w.Message }
