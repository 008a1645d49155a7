package streamtpl

// FrameKind tags an entry of the rendering stack.
type FrameKind int

const (
	FrameTemplate FrameKind = iota
	FrameData
	FrameIndirect
	FrameConditional
	FrameIterator
)

func (k FrameKind) String() string {
	switch k {
	case FrameTemplate:
		return "template"
	case FrameData:
		return "data"
	case FrameIndirect:
		return "indirect"
	case FrameConditional:
		return "conditional"
	case FrameIterator:
		return "iterator"
	default:
		return "unknown"
	}
}

// frame is implemented only by the frame types below.
type frame interface {
	kind() FrameKind
	label() string
	info() FrameInfo
}

// cursor is a template frame's read position plus the window of the staging
// buffer it last filled. The window is only meaningful while the frame owns
// the staging buffer.
type cursor struct {
	pos    int
	bufOff int
	bufPos int
	bufLen int
}

func (c *cursor) invalidate() {
	c.bufOff, c.bufPos, c.bufLen = c.pos, 0, 0
}

type templateFrame struct {
	name      string
	src       Source
	cur       cursor
	overrides []Entry
}

func (f *templateFrame) kind() FrameKind { return FrameTemplate }
func (f *templateFrame) label() string   { return f.name }
func (f *templateFrame) info() FrameInfo {
	return FrameInfo{Kind: FrameTemplate, Name: f.name, Position: f.cur.pos, Length: f.src.Len(), Overrides: len(f.overrides)}
}

// override returns the newest override matching name.
func (f *templateFrame) override(name []byte) *Entry {
	for i := len(f.overrides) - 1; i >= 0; i-- {
		if f.overrides[i].name == string(name) {
			return &f.overrides[i]
		}
	}
	return nil
}

// dataFrame streams a static or live data entry.
type dataFrame struct {
	name  string
	entry *Entry
	off   int
}

func (f *dataFrame) kind() FrameKind { return FrameData }
func (f *dataFrame) label() string   { return f.name }
func (f *dataFrame) info() FrameInfo {
	fi := FrameInfo{Kind: FrameData, Name: f.name, Position: f.off}
	if f.entry != nil {
		fi.Length = f.entry.length()
	}
	return fi
}

// indirectFrame sits beneath the template frame of a static or computed
// template placeholder. tpl keeps a computed template alive until it pops.
type indirectFrame struct {
	name  string
	entry *Entry
	tpl   []byte
}

func (f *indirectFrame) kind() FrameKind { return FrameIndirect }
func (f *indirectFrame) label() string   { return f.name }
func (f *indirectFrame) info() FrameInfo {
	return FrameInfo{Kind: FrameIndirect, Name: f.name, Length: len(f.tpl)}
}

type conditionalFrame struct {
	name     string
	entry    *Entry
	branch   Branch
	delegate string
}

func (f *conditionalFrame) kind() FrameKind { return FrameConditional }
func (f *conditionalFrame) label() string   { return f.name }
func (f *conditionalFrame) info() FrameInfo {
	return FrameInfo{Kind: FrameConditional, Name: f.name, Detail: f.branch.String() + " " + f.delegate}
}

type iteratorFrame struct {
	name   string
	entry  *Entry
	handle any
	opened bool
	items  int
}

func (f *iteratorFrame) kind() FrameKind { return FrameIterator }
func (f *iteratorFrame) label() string   { return f.name }
func (f *iteratorFrame) info() FrameInfo {
	detail := "pending"
	if f.opened {
		detail = "open"
	}
	return FrameInfo{Kind: FrameIterator, Name: f.name, Position: f.items, Detail: detail}
}

// close runs the iterator's close hook once for an opened handle.
func (f *iteratorFrame) close() {
	if !f.opened {
		return
	}
	f.opened = false
	if f.entry != nil && f.entry.iter != nil && f.entry.iter.Close != nil {
		f.entry.iter.Close(f.handle)
	}
	f.handle = nil
}

// isIndirection reports frames that only exist to wrap the frame above them.
func isIndirection(f frame) bool {
	switch f.(type) {
	case *indirectFrame, *conditionalFrame:
		return true
	}
	return false
}

// FrameInfo is a read-only snapshot of one frame.
type FrameInfo struct {
	Depth     int       `json:"depth" yaml:"depth"`
	Kind      FrameKind `json:"-" yaml:"-"`
	KindName  string    `json:"kind" yaml:"kind"`
	Name      string    `json:"name" yaml:"name"`
	Position  int       `json:"position" yaml:"position"`
	Length    int       `json:"length" yaml:"length"`
	Overrides int       `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	Detail    string    `json:"detail,omitempty" yaml:"detail,omitempty"`
}
