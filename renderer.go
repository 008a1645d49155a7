package streamtpl

import (
	"bytes"
	"fmt"
)

// rootLabel names the frame of the template passed to Initialize.
const rootLabel = "<root>"

// Renderer drives a Context through its state machine, producing output in
// caller-sized chunks. A Renderer holds no per-render state and may be shared
// by any number of contexts.
type Renderer struct {
	maxSteps int
	log      Logger
}

// NewRenderer returns a renderer.
func NewRenderer(opts ...Option) *Renderer {
	cfg := buildConfig(opts)
	return &Renderer{maxSteps: cfg.MaxSteps, log: cfg.logger()}
}

// Initialize starts a render of tpl in c. Frames left over from a previous
// render are unwound first, closing their iterators.
func (r *Renderer) Initialize(c *Context, tpl Source) error {
	c.Unwind()
	c.Reset()
	if err := c.push(&templateFrame{name: rootLabel, src: tpl}); err != nil {
		return err
	}
	c.setState(StateText)
	return nil
}

// Next writes the next chunk of output into p and returns its length. Zero
// means the render is complete, has failed, or made no progress within the
// step cap; IsComplete and HasError tell these apart. Output is identical for
// any sequence of buffer sizes.
func (r *Renderer) Next(c *Context, p []byte) int {
	if c == nil || len(p) == 0 || c.done() {
		return 0
	}
	written, steps := 0, 0
	for written < len(p) && !c.done() {
		if steps == r.maxSteps {
			r.log.Warn("step cap %d reached after %d bytes, yielding", r.maxSteps, written)
			break
		}
		written += r.step(c, p[written:])
		steps++
	}
	c.stats.Bytes += int64(written)
	c.stats.Steps += int64(steps)
	return written
}

// IsComplete reports whether the render finished successfully.
func (r *Renderer) IsComplete(c *Context) bool { return c.state == StateComplete }

// HasError reports whether the render failed.
func (r *Renderer) HasError(c *Context) bool { return c.state == StateError }

func (r *Renderer) step(c *Context, p []byte) int {
	switch c.state {
	case StateText:
		return r.scanText(c, p)
	case StateBuilding:
		r.buildName(c)
	case StateRendering:
		return r.renderTop(c, p)
	}
	return 0
}

// scanText copies template text up to the next delimiter.
func (r *Renderer) scanText(c *Context, p []byte) int {
	if c.topTemplate() == nil {
		r.finish(c)
		return 0
	}
	b, err := c.staged()
	if err != nil {
		r.fail(c, err)
		return 0
	}
	if len(b) == 0 {
		r.finish(c)
		return 0
	}
	switch i := bytes.IndexByte(b, Delim); {
	case i == 0:
		c.advance(1)
		c.resetName()
		c.appendName(Delim)
		c.setState(StateBuilding)
		return 0
	case i > 0:
		b = b[:i]
	}
	n := copy(p, b)
	c.advance(n)
	return n
}

// buildName accumulates a placeholder name until its closing delimiter.
func (r *Renderer) buildName(c *Context) {
	for {
		if c.nameFull() {
			r.log.Warn("placeholder %q exceeds %d bytes, discarded", c.name, cap(c.name))
			c.resetName()
			c.setState(StateText)
			return
		}
		b, err := c.staged()
		if err != nil {
			r.fail(c, err)
			return
		}
		if len(b) == 0 {
			r.log.Warn("unterminated placeholder %q at end of template", c.name)
			c.resetName()
			r.finish(c)
			return
		}
		c.advance(1)
		c.appendName(b[0])
		if b[0] == Delim {
			r.resolve(c)
			return
		}
	}
}

// resolve looks the finished name up in the scanned template's overrides,
// then in the registry. An override missing a required callback is ignored.
func (r *Renderer) resolve(c *Context) {
	var e *Entry
	if tf := c.topTemplate(); tf != nil {
		e = tf.override(c.name)
	}
	if e != nil {
		// Overrides skip registration, so check them here.
		if missing := e.missingCallback(); missing != "" {
			r.log.Warn("override %q has no %s, ignored", e.name, missing)
			e = nil
		}
	}
	if e == nil {
		e = c.reg.lookupBytes(c.name)
	}
	if e == nil {
		r.log.Debug("unknown placeholder %q", c.name)
		c.resetName()
		c.setState(StateText)
		return
	}
	c.resetName()
	r.enter(c, e)
}

// enter pushes the frames that render e.
func (r *Renderer) enter(c *Context, e *Entry) {
	switch e.kind {
	case KindStaticData, KindLiveData:
		if r.push(c, &dataFrame{name: e.name, entry: e}) {
			c.setState(StateRendering)
		}
	case KindStaticTemplate:
		if r.push(c, &indirectFrame{name: e.name, entry: e}) &&
			r.push(c, &templateFrame{name: e.name, src: e.src}) {
			c.setState(StateText)
		}
	case KindComputedTemplate:
		tpl := e.computed.Get()
		if tpl == nil {
			r.log.Warn("computed template %q returned nil, rendering nothing", e.name)
		}
		if e.computed.Length != nil {
			if n := e.computed.Length(tpl); n >= 0 && n < len(tpl) {
				tpl = tpl[:n]
			}
		}
		if r.push(c, &indirectFrame{name: e.name, entry: e, tpl: tpl}) &&
			r.push(c, &templateFrame{name: e.name, src: DirectBytes(tpl)}) {
			c.setState(StateText)
		}
	case KindConditional:
		f := &conditionalFrame{name: e.name, entry: e}
		if !r.push(c, f) {
			return
		}
		f.branch = e.cond.Evaluate()
		switch f.branch {
		case TrueBranch:
			f.delegate = e.cond.True
		case FalseBranch:
			f.delegate = e.cond.False
		}
		if f.delegate == "" {
			r.log.Debug("conditional %q selected no branch", e.name)
			r.finish(c)
			return
		}
		d, ok := c.reg.Lookup(f.delegate)
		if !ok {
			r.log.Warn("conditional %q: %s branch %q is not registered", e.name, f.branch, f.delegate)
			r.finish(c)
			return
		}
		r.enter(c, d)
	case KindIterator:
		if r.push(c, &iteratorFrame{name: e.name, entry: e}) {
			c.setState(StateRendering)
		}
	default:
		r.fail(c, fmt.Errorf("%w: placeholder %q has kind %q", ErrUnknownKind, e.name, e.kind))
	}
}

// renderTop advances whatever frame is on top of the stack.
func (r *Renderer) renderTop(c *Context, p []byte) int {
	switch f := c.top().(type) {
	case nil:
		c.setState(StateComplete)
	case *templateFrame:
		c.setState(StateText)
		return r.scanText(c, p)
	case *dataFrame:
		n, err := c.reg.Render(f.entry, f.off, p)
		if err != nil {
			r.fail(c, fmt.Errorf("%w: placeholder %q: %w", ErrRenderFailed, f.name, err))
			return 0
		}
		if n == 0 {
			r.finish(c)
			return 0
		}
		f.off += n
		return n
	case *iteratorFrame:
		r.advanceIterator(c, f)
	default:
		r.finish(c)
	}
	return 0
}

// advanceIterator opens the iterator on first use and pushes its next item.
func (r *Renderer) advanceIterator(c *Context, f *iteratorFrame) {
	if f.entry == nil || f.entry.iter == nil || f.entry.iter.Next == nil {
		r.finish(c)
		return
	}
	it := f.entry.iter
	if !f.opened {
		f.handle = it.Data
		if it.Open != nil {
			f.handle = it.Open(it.Data)
		}
		f.opened = true
	}
	var item Item
	switch step := it.Next(f.handle, &item); step {
	case ItemReady:
		f.items++
		if r.push(c, &templateFrame{name: f.name, src: item.Template, overrides: item.Overrides}) {
			c.setState(StateText)
		}
	case Done:
		r.log.Debug("iterator %q done after %d items", f.name, f.items)
		r.finish(c)
	default:
		err := fmt.Errorf("%w: iterator %q reported %s after %d items", ErrRenderFailed, f.name, step, f.items)
		r.log.Error("%v", err)
		r.fail(c, err)
	}
}

// finish pops the top frame along with the indirection frames wrapping it,
// then picks the state for whatever is exposed.
func (r *Renderer) finish(c *Context) {
	if err := c.pop(); err != nil {
		r.fail(c, err)
		return
	}
	for isIndirection(c.top()) {
		_ = c.pop()
	}
	switch c.top().(type) {
	case nil:
		c.setState(StateComplete)
	case *templateFrame:
		c.setState(StateText)
	default:
		c.setState(StateRendering)
	}
}

func (r *Renderer) push(c *Context, f frame) bool {
	if err := c.push(f); err != nil {
		r.fail(c, err)
		return false
	}
	return true
}

// fail records err and unwinds the stack so every opened iterator is closed.
func (r *Renderer) fail(c *Context, err error) {
	c.setError(err)
	c.Unwind()
}
