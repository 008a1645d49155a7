package streamtpl

// LiveFunc returns the current value of a live data placeholder. It is called
// again for every length or read query, so it always reflects the latest value.
type LiveFunc func() string

// ComputedTemplate produces a template when its placeholder is resolved.
type ComputedTemplate struct {
	// Get is called once per resolution. A nil result renders as an empty
	// template. The returned bytes must stay valid until the nested template
	// has been rendered.
	Get func() []byte
	// Length optionally limits how much of the returned template is used.
	Length func(tpl []byte) int
}

// Branch is the result of evaluating a conditional.
type Branch int

const (
	Skip Branch = iota
	TrueBranch
	FalseBranch
)

func (b Branch) String() string {
	switch b {
	case TrueBranch:
		return "true"
	case FalseBranch:
		return "false"
	default:
		return "skip"
	}
}

// Conditional delegates to one of two registered placeholders.
type Conditional struct {
	Evaluate func() Branch
	True     string
	False    string
}

// Step is the outcome of advancing an iteration.
type Step int

const (
	ItemReady Step = iota
	Done
	Failed
)

func (s Step) String() string {
	switch s {
	case ItemReady:
		return "item"
	case Done:
		return "done"
	default:
		return "failed"
	}
}

// Item is one iteration result. Overrides are resolved before the registry,
// and only while the item's own template is being scanned.
type Item struct {
	Template  Source
	Overrides []Entry
}

// Iterator produces a sequence of items rendered one after another.
//
// Open is optional; when nil, Data is used as the handle. Next is required.
// Close is optional and is called exactly once for every opened handle when
// the iterator frame is popped, whether iteration completed, failed, or was
// unwound by an error elsewhere in the render.
type Iterator struct {
	Open  func(data any) any
	Next  func(handle any, item *Item) Step
	Close func(handle any)
	Data  any
}

// Entry binds a placeholder name to a data source. Entries are built with
// the constructors below and are either registered or supplied as iterator
// overrides.
type Entry struct {
	name     string
	kind     Kind
	src      Source
	live     LiveFunc
	computed *ComputedTemplate
	cond     *Conditional
	iter     *Iterator
}

// StaticData returns an entry rendering src verbatim.
func StaticData(name string, src Source) Entry {
	return Entry{name: name, kind: KindStaticData, src: src}
}

// Text returns a direct static data entry over s. It is the usual way to
// build iterator overrides.
func Text(name, s string) Entry {
	return StaticData(name, DirectString(s))
}

// StaticTemplate returns an entry rendering src as a nested template.
func StaticTemplate(name string, src Source) Entry {
	return Entry{name: name, kind: KindStaticTemplate, src: src}
}

// Live returns a live data entry.
func Live(name string, fn LiveFunc) Entry {
	return Entry{name: name, kind: KindLiveData, live: fn}
}

// Computed returns a computed template entry.
func Computed(name string, ct ComputedTemplate) Entry {
	return Entry{name: name, kind: KindComputedTemplate, computed: &ct}
}

// Cond returns a conditional entry.
func Cond(name string, c Conditional) Entry {
	return Entry{name: name, kind: KindConditional, cond: &c}
}

// Iter returns an iterator entry.
func Iter(name string, it Iterator) Entry {
	return Entry{name: name, kind: KindIterator, iter: &it}
}

// Name returns the placeholder name including delimiters.
func (e Entry) Name() string { return e.name }

// Kind returns the placeholder kind.
func (e Entry) Kind() Kind { return e.kind }

// Source returns the backing source of static kinds.
func (e Entry) Source() Source { return e.src }

// missingCallback reports which required callback is absent, if any.
func (e Entry) missingCallback() string {
	switch e.kind {
	case KindLiveData:
		if e.live == nil {
			return "live getter"
		}
	case KindComputedTemplate:
		if e.computed == nil || e.computed.Get == nil {
			return "template getter"
		}
	case KindConditional:
		if e.cond == nil || e.cond.Evaluate == nil {
			return "evaluator"
		}
	case KindIterator:
		if e.iter == nil || e.iter.Next == nil {
			return "next hook"
		}
	}
	return ""
}

// length reports the current byte length of flat kinds.
func (e *Entry) length() int {
	switch e.kind {
	case KindStaticData, KindStaticTemplate:
		return e.src.Len()
	case KindLiveData:
		if e.live == nil {
			return 0
		}
		return len(e.live())
	default:
		return 0
	}
}
