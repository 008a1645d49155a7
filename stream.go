package streamtpl

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Render renders src through c and writes every chunk to w as it is
// produced, using buf as the only output buffer. A nil or empty buf gets the
// default buffer size. It returns the number of bytes written.
func Render(w io.Writer, r *Renderer, c *Context, src Source, buf []byte) (int64, error) {
	return Stream(context.Background(), w, r, c, src, buf)
}

// Stream is Render with cancellation. ctx is checked between chunks; on
// cancellation or a write error the context is unwound so opened iterators
// are closed.
func Stream(ctx context.Context, w io.Writer, r *Renderer, c *Context, src Source, buf []byte) (int64, error) {
	if len(buf) == 0 {
		buf = make([]byte, DefaultBufferSize)
	}
	if err := r.Initialize(c, src); err != nil {
		return 0, renderErr(err)
	}
	var total int64
	for !r.IsComplete(c) {
		if err := ctx.Err(); err != nil {
			c.Unwind()
			return total, err
		}
		n := r.Next(c, buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			total += int64(m)
			if err != nil {
				c.Unwind()
				return total, fmt.Errorf("writing output: %w", err)
			}
		}
		if r.HasError(c) {
			return total, renderErr(c.Err())
		}
	}
	return total, nil
}

// renderErr makes sure err matches ErrRenderFailed.
func renderErr(err error) error {
	if err == nil {
		return ErrRenderFailed
	}
	if errors.Is(err, ErrRenderFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRenderFailed, err)
}

// Reader adapts an initialized Context to io.Reader.
type Reader struct {
	r *Renderer
	c *Context
}

// NewReader returns a Reader over c, which must already be initialized.
// Read returns io.EOF once the render completes and an error matching
// ErrRenderFailed if it fails.
func NewReader(r *Renderer, c *Context) *Reader {
	return &Reader{r: r, c: c}
}

func (rd *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if n := rd.r.Next(rd.c, p); n > 0 {
			return n, nil
		}
		switch {
		case rd.r.IsComplete(rd.c):
			return 0, io.EOF
		case rd.r.HasError(rd.c):
			return 0, renderErr(rd.c.Err())
		}
	}
}
