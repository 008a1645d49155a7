package streamtpl

import (
	"fmt"
)

// Registry is a fixed-capacity table of placeholder entries. Registration is
// append-only and a later entry shadows an earlier one with the same name.
//
// A Registry must not be modified while any Context is rendering from it;
// concurrent reads from independent contexts are safe.
type Registry struct {
	entries     []Entry
	maxNameLen  int
	bulkChunk   int
	directChunk int
	log         Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	cfg := buildConfig(opts)
	return &Registry{
		entries:     make([]Entry, 0, cfg.Capacity),
		maxNameLen:  cfg.MaxNameLen,
		bulkChunk:   cfg.BulkChunk,
		directChunk: cfg.DirectChunk,
		log:         cfg.logger(),
	}
}

// Register validates and appends e.
func (r *Registry) Register(e Entry) error {
	if err := r.validate(e); err != nil {
		r.log.Error("cannot register %q: %v", e.name, err)
		return err
	}
	if len(r.entries) == cap(r.entries) {
		r.log.Error("registry full, cannot register %q", e.name)
		return fmt.Errorf("%w: capacity %d, cannot register %q", ErrRegistryFull, cap(r.entries), e.name)
	}
	if _, dup := r.Lookup(e.name); dup {
		r.log.Warn("placeholder %q already registered, newest wins", e.name)
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *Registry) validate(e Entry) error {
	if e.name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(e.name) >= r.maxNameLen {
		return fmt.Errorf("%w: %q is %d bytes, limit is %d", ErrInvalidName, e.name, len(e.name), r.maxNameLen-1)
	}
	if _, err := ParseKind(string(e.kind)); err != nil {
		return err
	}
	if missing := e.missingCallback(); missing != "" {
		return fmt.Errorf("%w: %s placeholder %q has no %s", ErrMissingCallback, e.kind, e.name, missing)
	}
	return nil
}

// RegisterStaticData registers a blob rendered verbatim.
func (r *Registry) RegisterStaticData(name string, src Source) error {
	return r.Register(StaticData(name, src))
}

// RegisterStaticTemplate registers a nested template.
func (r *Registry) RegisterStaticTemplate(name string, src Source) error {
	return r.Register(StaticTemplate(name, src))
}

// RegisterLiveData registers a getter re-read on every query.
func (r *Registry) RegisterLiveData(name string, fn LiveFunc) error {
	return r.Register(Live(name, fn))
}

// RegisterComputedTemplate registers a template produced at resolution time.
func (r *Registry) RegisterComputedTemplate(name string, ct ComputedTemplate) error {
	return r.Register(Computed(name, ct))
}

// RegisterConditional registers a two-way branch over other placeholders.
func (r *Registry) RegisterConditional(name string, c Conditional) error {
	return r.Register(Cond(name, c))
}

// RegisterIterator registers an item sequence.
func (r *Registry) RegisterIterator(name string, it Iterator) error {
	return r.Register(Iter(name, it))
}

// Lookup returns the newest entry named name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	if r == nil {
		return nil, false
	}
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].name == name {
			return &r.entries[i], true
		}
	}
	return nil, false
}

// lookupBytes is Lookup without converting name to a string.
func (r *Registry) lookupBytes(name []byte) *Entry {
	if r == nil {
		return nil
	}
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].name == string(name) {
			return &r.entries[i]
		}
	}
	return nil
}

// Render copies the flat content of e starting at off into p. A single call
// copies at most the configured chunk size for the entry's locality. Kinds
// driven by the renderer (computed templates, conditionals, iterators) always
// yield zero. A nil Registry uses the default chunk sizes.
func (r *Registry) Render(e *Entry, off int, p []byte) (int, error) {
	if e == nil || len(p) == 0 || off < 0 {
		return 0, nil
	}
	bulk, direct := DefaultBulkChunk, DefaultDirectChunk
	if r != nil {
		bulk, direct = r.bulkChunk, r.directChunk
	}
	switch e.kind {
	case KindStaticData, KindStaticTemplate:
		limit := direct
		if e.src.Locality() == Bulk {
			limit = bulk
		}
		return e.src.CopyAt(clampLen(p, limit), off)
	case KindLiveData:
		if e.live == nil {
			return 0, nil
		}
		v := e.live()
		if off >= len(v) {
			return 0, nil
		}
		return copy(clampLen(p, direct), v[off:]), nil
	default:
		return 0, nil
	}
}

func clampLen(p []byte, n int) []byte {
	if len(p) > n {
		return p[:n]
	}
	return p
}

// Clear removes every entry. Capacity is unchanged.
func (r *Registry) Clear() {
	clear(r.entries)
	r.entries = r.entries[:0]
}

// Len returns the number of registered entries, shadowed ones included.
func (r *Registry) Len() int { return len(r.entries) }

// Cap returns the registry capacity.
func (r *Registry) Cap() int { return cap(r.entries) }

// EntryInfo describes one registered entry.
type EntryInfo struct {
	Name     string `json:"name" yaml:"name"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Locality string `json:"locality,omitempty" yaml:"locality,omitempty"`
	Length   int    `json:"length" yaml:"length"`
	Shadowed bool   `json:"shadowed,omitempty" yaml:"shadowed,omitempty"`
}

// Entries returns a snapshot in registration order. Live data lengths are
// read from their getters at call time.
func (r *Registry) Entries() []EntryInfo {
	if r == nil {
		return []EntryInfo{}
	}
	out := make([]EntryInfo, len(r.entries))
	seen := make(map[string]bool, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := &r.entries[i]
		info := EntryInfo{Name: e.name, Kind: e.kind, Length: e.length(), Shadowed: seen[e.name]}
		switch e.kind {
		case KindStaticData, KindStaticTemplate:
			info.Locality = e.src.Locality().String()
		case KindLiveData, KindComputedTemplate:
			info.Locality = Direct.String()
		}
		seen[e.name] = true
		out[i] = info
	}
	return out
}
