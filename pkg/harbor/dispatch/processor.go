// Package dispatch routes a parsed request to one of ten method hooks and
// turns every handler failure into a response.
//
// Usage:
//
//	type api struct{ *dispatch.Base }
//
//	func (a api) Post(req *http11.Request) (*http11.Response, error) {
//	    return http11.NewStringResponse("created").SetStatusCode(201), nil
//	}
//
//	p := api{dispatch.NewBase(static.New("/srv/www"))}
//	srv := server.New(cfg, p)
//
// Hooks that are not overridden keep the Base behavior: GET serves files
// from the resolver root, everything else answers 405.
package dispatch

import (
	"sync"

	"github.com/yourusername/harbor/pkg/harbor/http11"
	"github.com/yourusername/harbor/pkg/harbor/static"
)

// Processor handles one request per method. None receives every method
// token without a dedicated hook. A hook may return an error or panic; the
// Dispatcher converts both into a 500 response.
type Processor interface {
	Get(req *http11.Request) (*http11.Response, error)
	Head(req *http11.Request) (*http11.Response, error)
	Post(req *http11.Request) (*http11.Response, error)
	Put(req *http11.Request) (*http11.Response, error)
	Delete(req *http11.Request) (*http11.Response, error)
	Connect(req *http11.Request) (*http11.Response, error)
	Options(req *http11.Request) (*http11.Response, error)
	Trace(req *http11.Request) (*http11.Response, error)
	Patch(req *http11.Request) (*http11.Response, error)
	None(req *http11.Request) (*http11.Response, error)
}

// HandlerFunc is the signature shared by every hook.
type HandlerFunc func(req *http11.Request) (*http11.Response, error)

// Base is the default Processor. It embeds a Resolver so overriding hooks
// can call FromFile, FromResource and Error directly.
type Base struct {
	*static.Resolver
}

// NewBase returns a Base serving files through r. A nil r gets a resolver
// without a root, which answers every GET with the bundled 404 page.
func NewBase(r *static.Resolver) *Base {
	if r == nil {
		r = static.New("")
	}
	return &Base{Resolver: r}
}

// Get serves the request path from the resolver root.
func (b *Base) Get(req *http11.Request) (*http11.Response, error) {
	return b.FromFile(req.Path()), nil
}

func (b *Base) Head(req *http11.Request) (*http11.Response, error)    { return b.Error(405), nil }
func (b *Base) Post(req *http11.Request) (*http11.Response, error)    { return b.Error(405), nil }
func (b *Base) Put(req *http11.Request) (*http11.Response, error)     { return b.Error(405), nil }
func (b *Base) Delete(req *http11.Request) (*http11.Response, error)  { return b.Error(405), nil }
func (b *Base) Connect(req *http11.Request) (*http11.Response, error) { return b.Error(405), nil }
func (b *Base) Options(req *http11.Request) (*http11.Response, error) { return b.Error(405), nil }
func (b *Base) Trace(req *http11.Request) (*http11.Response, error)   { return b.Error(405), nil }
func (b *Base) Patch(req *http11.Request) (*http11.Response, error)   { return b.Error(405), nil }
func (b *Base) None(req *http11.Request) (*http11.Response, error)    { return b.Error(405), nil }

// ProcessorFuncs builds a Processor from plain functions. A nil field falls
// back to the matching Base hook.
type ProcessorFuncs struct {
	Base *Base

	GetFunc     HandlerFunc
	HeadFunc    HandlerFunc
	PostFunc    HandlerFunc
	PutFunc     HandlerFunc
	DeleteFunc  HandlerFunc
	ConnectFunc HandlerFunc
	OptionsFunc HandlerFunc
	TraceFunc   HandlerFunc
	PatchFunc   HandlerFunc
	NoneFunc    HandlerFunc
}

// rootless is shared by every ProcessorFuncs without a Base.
var rootless = sync.OnceValue(func() *Base { return NewBase(nil) })

func (f *ProcessorFuncs) base() *Base {
	if f.Base == nil {
		return rootless()
	}
	return f.Base
}

// Error answers with an error page from the Base resolver, so servers
// built on ProcessorFuncs reject malformed requests with the same pages.
func (f *ProcessorFuncs) Error(status int) *http11.Response {
	return f.base().Error(status)
}

func (f *ProcessorFuncs) Get(req *http11.Request) (*http11.Response, error) {
	if f.GetFunc != nil {
		return f.GetFunc(req)
	}
	return f.base().Get(req)
}

func (f *ProcessorFuncs) Head(req *http11.Request) (*http11.Response, error) {
	if f.HeadFunc != nil {
		return f.HeadFunc(req)
	}
	return f.base().Head(req)
}

func (f *ProcessorFuncs) Post(req *http11.Request) (*http11.Response, error) {
	if f.PostFunc != nil {
		return f.PostFunc(req)
	}
	return f.base().Post(req)
}

func (f *ProcessorFuncs) Put(req *http11.Request) (*http11.Response, error) {
	if f.PutFunc != nil {
		return f.PutFunc(req)
	}
	return f.base().Put(req)
}

func (f *ProcessorFuncs) Delete(req *http11.Request) (*http11.Response, error) {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(req)
	}
	return f.base().Delete(req)
}

func (f *ProcessorFuncs) Connect(req *http11.Request) (*http11.Response, error) {
	if f.ConnectFunc != nil {
		return f.ConnectFunc(req)
	}
	return f.base().Connect(req)
}

func (f *ProcessorFuncs) Options(req *http11.Request) (*http11.Response, error) {
	if f.OptionsFunc != nil {
		return f.OptionsFunc(req)
	}
	return f.base().Options(req)
}

func (f *ProcessorFuncs) Trace(req *http11.Request) (*http11.Response, error) {
	if f.TraceFunc != nil {
		return f.TraceFunc(req)
	}
	return f.base().Trace(req)
}

func (f *ProcessorFuncs) Patch(req *http11.Request) (*http11.Response, error) {
	if f.PatchFunc != nil {
		return f.PatchFunc(req)
	}
	return f.base().Patch(req)
}

func (f *ProcessorFuncs) None(req *http11.Request) (*http11.Response, error) {
	if f.NoneFunc != nil {
		return f.NoneFunc(req)
	}
	return f.base().None(req)
}
