package pipeline

import "github.com/mmverify/mmcore/internal/diagnostics"

// CancelFlag is a shared, swappable cancellation token. The coordinator
// installs a fresh one for every edit; stages poll it at their bounded
// interior points (spec §5).
type CancelFlag struct {
	ch chan struct{}
}

func NewCancelFlag() *CancelFlag {
	return &CancelFlag{ch: make(chan struct{})}
}

func (f *CancelFlag) Cancel() {
	if f == nil {
		return
	}
	select {
	case <-f.ch:
	default:
		close(f.ch)
	}
}

func (f *CancelFlag) IsSet() bool {
	if f == nil {
		return false
	}
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// Context is the generic carrier threaded through an MMP stage pipeline.
// Concrete stages (internal/mmp) embed a domain-specific payload in Value;
// Context itself only owns what every stage needs regardless of domain:
// diagnostics and cancellation.
type Context struct {
	Diagnostics diagnostics.Bag
	Cancel      *CancelFlag
	Value       interface{}
}

func NewContext(value interface{}, cancel *CancelFlag) *Context {
	return &Context{Value: value, Cancel: cancel}
}

func (c *Context) Cancelled() bool {
	return c.Cancel.IsSet()
}

func (c *Context) AddDiag(code diagnostics.Code, span diagnostics.Span, format string, args ...interface{}) {
	c.Diagnostics.Add(code, span, format, args...)
}
