package streamtpl

import (
	"fmt"
	"strings"
	"time"
)

// State is the renderer's position in its state machine.
type State int

const (
	StateText State = iota
	StateBuilding
	StateRendering
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateText:
		return "text"
	case StateBuilding:
		return "building"
	case StateRendering:
		return "rendering"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Stats summarizes a render so far.
type Stats struct {
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	Steps     int64         `json:"steps" yaml:"steps"`
	Depth     int           `json:"depth" yaml:"depth"`
	PeakDepth int           `json:"peak_depth" yaml:"peak_depth"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Context holds all state of one render: the frame stack, the staging buffer
// used to read template sources, and the placeholder name being built.
// Rendering can stop after any call and resume later from the Context alone.
//
// A Context is not safe for concurrent use. Independent contexts may share a
// Registry.
type Context struct {
	reg      *Registry
	stack    []frame
	maxDepth int

	buf   []byte
	owner *templateFrame
	name  []byte

	state   State
	err     error
	stats   Stats
	started time.Time
	now     func() time.Time
	log     Logger
}

// NewContext returns a context rendering against reg.
func NewContext(reg *Registry, opts ...Option) *Context {
	cfg := buildConfig(opts)
	c := &Context{
		reg:      reg,
		stack:    make([]frame, 0, cfg.MaxDepth),
		maxDepth: cfg.MaxDepth,
		buf:      make([]byte, cfg.BufferSize),
		name:     make([]byte, 0, cfg.MaxNameLen-1),
		now:      time.Now,
		log:      cfg.logger(),
	}
	c.Reset()
	return c
}

// Registry returns the registry placeholders are resolved against.
func (c *Context) Registry() *Registry { return c.reg }

// Push pushes an empty frame of the given kind. It fails, and puts the
// context into StateError, when the stack is full.
func (c *Context) Push(kind FrameKind, label string) error {
	var f frame
	switch kind {
	case FrameTemplate:
		f = &templateFrame{name: label}
	case FrameData:
		f = &dataFrame{name: label}
	case FrameIndirect:
		f = &indirectFrame{name: label}
	case FrameConditional:
		f = &conditionalFrame{name: label}
	case FrameIterator:
		f = &iteratorFrame{name: label}
	default:
		return fmt.Errorf("unknown frame kind %d", kind)
	}
	return c.push(f)
}

// Pop discards the top frame, closing it first if it is an opened iterator.
// It fails, and puts the context into StateError, when the stack is empty.
func (c *Context) Pop() error { return c.pop() }

func (c *Context) push(f frame) error {
	if len(c.stack) >= c.maxDepth {
		err := fmt.Errorf("%w: depth %d reached pushing %s %q", ErrStackOverflow, c.maxDepth, f.kind(), f.label())
		c.log.Error("%v", err)
		c.setError(err)
		return err
	}
	if _, ok := f.(*templateFrame); ok {
		// The top template keeps its cursor; the staging buffer is handed over.
		c.owner = nil
	}
	c.stack = append(c.stack, f)
	if len(c.stack) > c.stats.PeakDepth {
		c.stats.PeakDepth = len(c.stack)
	}
	return nil
}

func (c *Context) pop() error {
	n := len(c.stack)
	if n == 0 {
		err := fmt.Errorf("%w: pop with empty stack", ErrStackUnderflow)
		c.log.Error("%v", err)
		c.setError(err)
		return err
	}
	top := c.stack[n-1]
	c.stack[n-1] = nil
	c.stack = c.stack[:n-1]

	switch f := top.(type) {
	case *iteratorFrame:
		f.close()
	case *templateFrame:
		if c.owner == f {
			c.owner = nil
		}
	}
	if tf := c.topTemplate(); tf != nil && tf != c.owner {
		tf.cur.invalidate()
	}
	return nil
}

func (c *Context) top() frame {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

func (c *Context) topTemplate() *templateFrame {
	tf, _ := c.top().(*templateFrame)
	return tf
}

// staged returns the unread bytes of the top template's staging window,
// refilling it when exhausted. An empty result means the source has ended.
func (c *Context) staged() ([]byte, error) {
	tf := c.topTemplate()
	if tf == nil {
		return nil, nil
	}
	if c.owner != tf {
		tf.cur.invalidate()
		c.owner = tf
	}
	if tf.cur.bufPos >= tf.cur.bufLen {
		if err := c.refill(tf); err != nil {
			return nil, err
		}
	}
	return c.buf[tf.cur.bufPos:tf.cur.bufLen], nil
}

// advance consumes n staged bytes.
func (c *Context) advance(n int) {
	tf := c.topTemplate()
	tf.cur.bufPos += n
	tf.cur.pos = tf.cur.bufOff + tf.cur.bufPos
}

// refill copies at most one staging buffer of the template source.
func (c *Context) refill(tf *templateFrame) error {
	n, err := tf.src.CopyAt(c.buf, tf.cur.pos)
	if err != nil {
		return fmt.Errorf("%w: reading template %q: %w", ErrRenderFailed, tf.name, err)
	}
	tf.cur = cursor{pos: tf.cur.pos, bufOff: tf.cur.pos, bufLen: n}
	c.owner = tf
	return nil
}

// NextByte returns the next byte of the top template frame. It reports
// false once the source is exhausted, when the top frame is not a template,
// or when the source cannot be read; a read failure also sets StateError.
func (c *Context) NextByte() (byte, bool) {
	b, err := c.staged()
	if err != nil {
		c.log.Error("%v", err)
		c.setError(err)
		return 0, false
	}
	if len(b) == 0 {
		return 0, false
	}
	c.advance(1)
	return b[0], true
}

// HasMore reports whether the top template frame has unread bytes.
func (c *Context) HasMore() bool {
	tf := c.topTemplate()
	return tf != nil && tf.cur.pos < tf.src.Len()
}

// Depth returns the number of frames on the stack.
func (c *Context) Depth() int { return len(c.stack) }

// Current describes the top frame.
func (c *Context) Current() (FrameInfo, bool) {
	return c.FrameAt(len(c.stack) - 1)
}

// FrameAt describes the frame at depth i, where 0 is the bottom.
func (c *Context) FrameAt(i int) (FrameInfo, bool) {
	if i < 0 || i >= len(c.stack) {
		return FrameInfo{}, false
	}
	fi := c.stack[i].info()
	fi.Depth = i
	fi.KindName = fi.Kind.String()
	return fi, true
}

// Frames describes the stack from the bottom up.
func (c *Context) Frames() []FrameInfo {
	out := make([]FrameInfo, 0, len(c.stack))
	for i := range c.stack {
		fi, _ := c.FrameAt(i)
		out = append(out, fi)
	}
	return out
}

// Reset empties the stack and clears the buffer, name, counters, and error.
// Frames are dropped without closing iterators; call Unwind first to close
// them.
func (c *Context) Reset() {
	clear(c.stack)
	c.stack = c.stack[:0]
	c.owner = nil
	c.name = c.name[:0]
	c.state = StateText
	c.err = nil
	c.stats = Stats{}
	c.started = c.now()
}

// Unwind pops every frame, closing opened iterators. The state is unchanged.
func (c *Context) Unwind() {
	for len(c.stack) > 0 {
		_ = c.pop()
	}
}

// State returns the current state.
func (c *Context) State() State { return c.state }

// Err returns the cause of StateError, or nil.
func (c *Context) Err() error { return c.err }

// Stats returns counters for the current render.
func (c *Context) Stats() Stats {
	s := c.stats
	s.Depth = len(c.stack)
	s.Elapsed = c.now().Sub(c.started)
	return s
}

func (c *Context) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Debug("state %s -> %s at depth %d", c.state, s, len(c.stack))
	c.state = s
}

func (c *Context) setError(err error) {
	if c.err == nil {
		c.err = err
	}
	c.setState(StateError)
}

func (c *Context) done() bool {
	return c.state == StateComplete || c.state == StateError
}

// appendName adds b to the placeholder name. It reports false when the name
// is already at its limit.
func (c *Context) appendName(b byte) bool {
	if len(c.name) == cap(c.name) {
		return false
	}
	c.name = append(c.name, b)
	return true
}

func (c *Context) nameFull() bool { return len(c.name) == cap(c.name) }

func (c *Context) resetName() { c.name = c.name[:0] }

// Trace renders the state and stack, top frame first.
func (c *Context) Trace() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "state=%s depth=%d/%d bytes=%d", c.state, len(c.stack), c.maxDepth, c.stats.Bytes)
	if c.err != nil {
		fmt.Fprintf(&sb, " err=%q", c.err.Error())
	}
	sb.WriteByte('\n')
	for i := len(c.stack) - 1; i >= 0; i-- {
		fi, _ := c.FrameAt(i)
		sb.WriteString("  ")
		sb.WriteString(fi.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
