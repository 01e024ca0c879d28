package refs

import (
	"os"

	"github.com/charmbracelet/log"
)

// Context tracks the file, line, and ref currently being processed, so
// diagnostics always report an accurate location. One Context value is
// threaded through a parse run; there is no process-global state.
//
// Callers must update the context immediately before any operation that
// might fail.
type Context struct {
	Logger *log.Logger
	File   string
	Line   int
	Ref    *Ref
}

// NewContext creates a parse context logging to the given logger, or a
// default stderr logger when nil.
func NewContext(logger *log.Logger) *Context {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "luadox"})
	}
	return &Context{Logger: logger}
}

// SetRef makes ref current and syncs file and line to its location.
func (c *Context) SetRef(ref *Ref) {
	c.Ref = ref
	if ref != nil {
		c.File = ref.File
		c.Line = ref.Line
	}
}

// Warnf logs a recoverable condition at the current location.
func (c *Context) Warnf(format string, args ...any) {
	c.Logger.Warnf("%s:%d: "+format, append([]any{c.File, c.Line}, args...)...)
}

// Errorf logs a non-fatal error at the current location.
func (c *Context) Errorf(format string, args ...any) {
	c.Logger.Errorf("%s:%d: "+format, append([]any{c.File, c.Line}, args...)...)
}

// Fatalf logs a structural error at the current location and
// terminates the run. The symbol table is not consistent after this.
func (c *Context) Fatalf(format string, args ...any) {
	c.Logger.Fatalf("%s:%d: "+format, append([]any{c.File, c.Line}, args...)...)
}
