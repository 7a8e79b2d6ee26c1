// Completion: 100% - Error handling complete, clear and helpful messages
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorLevel indicates the severity of an error
type ErrorLevel int

const (
	LevelWarning ErrorLevel = iota
	LevelError
	LevelFatal
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Kind classifies a compilation failure. Every kind aborts the whole compile.
type Kind int

const (
	KindInternal Kind = iota
	KindUnresolvedSymbol
	KindUnknownFunction
	KindTypeMismatch
	KindTooManyArguments
	KindMissingReturn
	KindUnsupportedPlatform
	KindDuplicateDeclaration
)

var kindNames = map[Kind]string{
	KindInternal:             "Internal",
	KindUnresolvedSymbol:     "UnresolvedSymbol",
	KindUnknownFunction:      "UnknownFunction",
	KindTypeMismatch:         "TypeMismatch",
	KindTooManyArguments:     "TooManyArguments",
	KindMissingReturn:        "MissingReturn",
	KindUnsupportedPlatform:  "UnsupportedPlatform",
	KindDuplicateDeclaration: "DuplicateDeclaration",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindInternal, false
}

// Sentinels for errors.Is
var (
	ErrInternal             = errors.New("internal compiler error")
	ErrUnresolvedSymbol     = errors.New("unresolved symbol")
	ErrUnknownFunction      = errors.New("unknown function")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrTooManyArguments     = errors.New("too many arguments")
	ErrMissingReturn        = errors.New("missing return")
	ErrUnsupportedPlatform  = errors.New("unsupported platform")
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnresolvedSymbol:
		return ErrUnresolvedSymbol
	case KindUnknownFunction:
		return ErrUnknownFunction
	case KindTypeMismatch:
		return ErrTypeMismatch
	case KindTooManyArguments:
		return ErrTooManyArguments
	case KindMissingReturn:
		return ErrMissingReturn
	case KindUnsupportedPlatform:
		return ErrUnsupportedPlatform
	case KindDuplicateDeclaration:
		return ErrDuplicateDeclaration
	default:
		return ErrInternal
	}
}

// Location points at the tree node an error was raised for
type Location struct {
	Function string // Enclosing function, empty at program level
	Seq      int    // Sequence number of the node, -1 if unknown
}

func (loc Location) String() string {
	switch {
	case loc.Function == "" && loc.Seq < 0:
		return "<program>"
	case loc.Function == "":
		return fmt.Sprintf("node %d", loc.Seq)
	case loc.Seq < 0:
		return loc.Function
	default:
		return fmt.Sprintf("%s: node %d", loc.Function, loc.Seq)
	}
}

// ErrorContext provides additional context for an error
type ErrorContext struct {
	Suggestion string // "did you mean 'x'?"
	HelpText   string // Explanatory help text
}

// CompilerError represents a single fatal compilation error
type CompilerError struct {
	Level    ErrorLevel
	Kind     Kind
	Message  string
	Location Location
	Context  ErrorContext
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
}

// Is makes errors.Is(err, ErrTypeMismatch) and friends work
func (e *CompilerError) Is(target error) bool {
	return e.Kind.sentinel() == target
}

// Format returns a nicely formatted error message with context
func (e *CompilerError) Format(useColor bool) string {
	var sb strings.Builder

	if useColor {
		sb.WriteString("\033[1;31m") // Bold red
	}
	sb.WriteString(e.Level.String())
	sb.WriteString(" [")
	sb.WriteString(e.Kind.String())
	sb.WriteString("]: ")
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString(e.Message)
	sb.WriteString("\n")

	if useColor {
		sb.WriteString("\033[1;34m") // Bold blue
	}
	sb.WriteString("  --> ")
	sb.WriteString(e.Location.String())
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString("\n")

	if e.Context.Suggestion != "" {
		if useColor {
			sb.WriteString("\033[1;32m") // Bold green
		}
		sb.WriteString("   help: ")
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString(e.Context.Suggestion)
		sb.WriteString("\n")
	}

	if e.Context.HelpText != "" {
		if useColor {
			sb.WriteString("\033[1;36m") // Bold cyan
		}
		sb.WriteString("   note: ")
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString(e.Context.HelpText)
		sb.WriteString("\n")
	}

	return sb.String()
}

// New creates a fatal error of the given kind
func New(kind Kind, loc Location, format string, args ...any) *CompilerError {
	return &CompilerError{
		Level:    LevelFatal,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

// WithSuggestion attaches "did you mean" candidates
func (e *CompilerError) WithSuggestion(candidates []string) *CompilerError {
	if len(candidates) == 0 {
		return e
	}
	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = "'" + c + "'"
	}
	e.Context.Suggestion = "did you mean " + strings.Join(quoted, " or ") + "?"
	return e
}

// WithHelp attaches explanatory text
func (e *CompilerError) WithHelp(format string, args ...any) *CompilerError {
	e.Context.HelpText = fmt.Sprintf(format, args...)
	return e
}

// Helper functions for common error patterns

func UnresolvedSymbol(loc Location, name string) *CompilerError {
	return New(KindUnresolvedSymbol, loc, "undefined: %s", name)
}

func UnknownFunction(loc Location, name string) *CompilerError {
	return New(KindUnknownFunction, loc, "unknown function: %s", name)
}

func TypeMismatch(loc Location, format string, args ...any) *CompilerError {
	return New(KindTypeMismatch, loc, format, args...)
}

func TooManyArguments(loc Location, name string, got, max int) *CompilerError {
	return New(KindTooManyArguments, loc, "%s: %d arguments, calling convention has %d argument registers", name, got, max).
		WithHelp("arguments are passed in registers only, there is no stack spill")
}

func MissingReturn(name string) *CompilerError {
	return New(KindMissingReturn, Location{Function: name, Seq: -1}, "function %s has no return", name)
}

func UnsupportedPlatform(format string, args ...any) *CompilerError {
	return New(KindUnsupportedPlatform, Location{Seq: -1}, format, args...)
}

func DuplicateDeclaration(loc Location, what, name string) *CompilerError {
	return New(KindDuplicateDeclaration, loc, "%s %s redeclared", what, name)
}

func Internal(loc Location, format string, args ...any) *CompilerError {
	return New(KindInternal, loc, format, args...)
}

// KindOf extracts the kind of a compiler error anywhere in err's chain
func KindOf(err error) (Kind, bool) {
	var ce *CompilerError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return KindInternal, false
}
