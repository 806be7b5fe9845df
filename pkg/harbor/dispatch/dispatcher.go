package dispatch

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/yourusername/harbor/pkg/harbor/http11"
	"github.com/yourusername/harbor/pkg/harbor/logging"
)

// Handler errors
var (
	// ErrNilResponse indicates a hook returned neither a response nor an error.
	ErrNilResponse = errors.New("dispatch: handler returned nil response")

	// ErrHandlerPanic indicates a hook panicked.
	ErrHandlerPanic = errors.New("dispatch: handler panicked")
)

// PanicError carries a recovered panic value and the goroutine stack.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrHandlerPanic, e.Value)
}

func (e *PanicError) Unwrap() error {
	return ErrHandlerPanic
}

// DefaultStackSize bounds the stack trace logged for a panic (4KB).
const DefaultStackSize = 4 << 10

// Dispatcher selects the hook for a request and shields the connection
// from handler failures.
type Dispatcher struct {
	processor Processor
	logger    *logging.Logger
	stackSize int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for handler failures.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithStackSize bounds the logged panic stack; 0 disables stack logging.
func WithStackSize(n int) Option {
	return func(d *Dispatcher) {
		d.stackSize = n
	}
}

// New returns a Dispatcher for p. A nil p behaves like NewBase(nil).
func New(p Processor, opts ...Option) *Dispatcher {
	if p == nil {
		p = NewBase(nil)
	}
	d := &Dispatcher{
		processor: p,
		logger:    logging.Nop(),
		stackSize: DefaultStackSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Processor returns the wrapped processor.
func (d *Dispatcher) Processor() Processor {
	return d.processor
}

// Process returns the response for req. It never panics and never returns
// nil: handler errors, nil responses and panics become a 500 with an empty
// body.
func (d *Dispatcher) Process(req *http11.Request) *http11.Response {
	resp, _ := d.Handle(req)
	return resp
}

// Handle is Process that also reports the handler failure, if any, that
// was converted into the 500 response.
func (d *Dispatcher) Handle(req *http11.Request) (resp *http11.Response, err error) {
	defer func() {
		if v := recover(); v != nil {
			stack := debug.Stack()
			if len(stack) > d.stackSize {
				stack = stack[:d.stackSize]
			}
			perr := &PanicError{Value: v, Stack: stack}

			fields := []logging.Field{
				logging.String("method", req.Method()),
				logging.String("path", req.Path()),
				logging.Any("panic", fmt.Sprint(v)),
			}
			if d.stackSize > 0 {
				fields = append(fields, logging.String("stack", string(stack)))
			}
			d.logger.Error("handler panic", fields...)

			resp, err = internalError(), perr
		}
	}()

	resp, err = d.route(req)
	if err != nil {
		d.logger.Error("handler failed",
			logging.String("method", req.Method()),
			logging.String("path", req.Path()),
			logging.Err(err))
		return internalError(), err
	}
	if resp == nil {
		d.logger.Error("handler returned nil response",
			logging.String("method", req.Method()),
			logging.String("path", req.Path()))
		return internalError(), ErrNilResponse
	}
	return resp, nil
}

// route calls exactly one hook; the method token is matched exactly and
// case-sensitively.
func (d *Dispatcher) route(req *http11.Request) (*http11.Response, error) {
	p := d.processor
	switch req.MethodID() {
	case http11.MethodIDGet:
		return p.Get(req)
	case http11.MethodIDHead:
		return p.Head(req)
	case http11.MethodIDPost:
		return p.Post(req)
	case http11.MethodIDPut:
		return p.Put(req)
	case http11.MethodIDDelete:
		return p.Delete(req)
	case http11.MethodIDConnect:
		return p.Connect(req)
	case http11.MethodIDOptions:
		return p.Options(req)
	case http11.MethodIDTrace:
		return p.Trace(req)
	case http11.MethodIDPatch:
		return p.Patch(req)
	default:
		return p.None(req)
	}
}

func internalError() *http11.Response {
	return http11.NewStatusResponse(500)
}
