package streamtpl

import (
	"context"
	"io"
	"sync"
)

// Pool recycles contexts bound to one registry so that servers rendering
// many requests do not allocate a stack and staging buffer per request.
type Pool struct {
	r    *Renderer
	ctxs sync.Pool
	bufs sync.Pool
}

// NewPool returns a pool of contexts over reg. opts configure the contexts
// and the pool's renderer. Output buffers hold OutputChunk bytes.
func NewPool(reg *Registry, opts ...Option) *Pool {
	size := buildConfig(opts).OutputChunk
	return &Pool{
		r: NewRenderer(opts...),
		ctxs: sync.Pool{New: func() any {
			return NewContext(reg, opts...)
		}},
		bufs: sync.Pool{New: func() any {
			b := make([]byte, size)
			return &b
		}},
	}
}

// Renderer returns the renderer shared by the pool.
func (p *Pool) Renderer() *Renderer { return p.r }

// Get returns a reset context.
func (p *Pool) Get() *Context {
	c := p.ctxs.Get().(*Context)
	c.Reset()
	return c
}

// Put unwinds c, closing any opened iterators, and returns it to the pool.
func (p *Pool) Put(c *Context) {
	if c == nil {
		return
	}
	c.Unwind()
	c.Reset()
	p.ctxs.Put(c)
}

// Render renders src to w with a pooled context and buffer.
func (p *Pool) Render(w io.Writer, src Source) (int64, error) {
	return p.Stream(context.Background(), w, src)
}

// Stream is Render with cancellation: it stops between chunks once ctx is
// done, closing any opened iterators.
func (p *Pool) Stream(ctx context.Context, w io.Writer, src Source) (int64, error) {
	c := p.Get()
	defer p.Put(c)
	buf := p.bufs.Get().(*[]byte)
	defer p.bufs.Put(buf)
	return Stream(ctx, w, p.r, c, src, *buf)
}
