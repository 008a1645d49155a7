package streamtpl

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest declares registry entries in YAML:
//
//	entries:
//	  - name: "%TITLE%"
//	    kind: static_data
//	    text: Status
//	  - name: "%PAGE%"
//	    kind: static_template
//	    file: page.html
//	    bulk: true
//	  - name: "%HOST%"
//	    kind: live_data
//	    env: HOSTNAME
//	    escape: true
//	  - name: "%ONLINE%"
//	    kind: conditional
//	    env: ONLINE
//	    then: "%UP%"
//	    else: "%DOWN%"
//	  - name: "%ROWS%"
//	    kind: iterator
//	    text: "<li>%K%=%V%</li>"
//	    items:
//	      - {"%K%": a, "%V%": "1"}
//
// File paths are relative to the manifest.
type Manifest struct {
	Entries []ManifestEntry `yaml:"entries"`

	fsys fs.FS
	dir  string
}

// ManifestEntry is one declared placeholder. Which fields apply depends on
// Kind:
//
//   - static_data, static_template: Text or File, optionally Bulk.
//   - live_data: Env or Prompt, falling back to Default; Escape HTML-escapes.
//   - computed_template: Env holds the template, read at resolution time.
//   - conditional: Env is parsed as a bool selecting Then or Else. An unset
//     variable selects neither.
//   - iterator: Text or File is the item template and Items the per-item
//     override values.
type ManifestEntry struct {
	Name    string              `yaml:"name"`
	Kind    string              `yaml:"kind"`
	Text    string              `yaml:"text,omitempty"`
	File    string              `yaml:"file,omitempty"`
	Bulk    bool                `yaml:"bulk,omitempty"`
	Env     string              `yaml:"env,omitempty"`
	Prompt  string              `yaml:"prompt,omitempty"`
	Default string              `yaml:"default,omitempty"`
	Escape  bool                `yaml:"escape,omitempty"`
	Then    string              `yaml:"then,omitempty"`
	Else    string              `yaml:"else,omitempty"`
	Items   []map[string]string `yaml:"items,omitempty"`
}

// Prompt is a question whose answer backs a live_data entry.
type Prompt struct {
	Name    string
	Message string
	Default string
}

// Bindings supplies the outside values a manifest refers to.
type Bindings struct {
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// Answers maps entry names to prompt answers.
	Answers map[string]string
}

func (b Bindings) env(key string) (string, bool) {
	if b.LookupEnv == nil {
		return os.LookupEnv(key)
	}
	return b.LookupEnv(key)
}

// ParseManifest decodes a manifest whose files, if any, are read from fsys
// relative to dir.
func ParseManifest(data []byte, fsys fs.FS, dir string) (*Manifest, error) {
	m := &Manifest{fsys: fsys, dir: dir}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	for i, e := range m.Entries {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidManifest, i, err)
		}
	}
	return m, nil
}

// LoadManifest reads and parses the manifest at name in fsys.
func LoadManifest(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %q: %w", name, err)
	}
	m, err := ParseManifest(data, fsys, path.Dir(name))
	if err != nil {
		return nil, fmt.Errorf("manifest %q: %w", name, err)
	}
	return m, nil
}

func (e ManifestEntry) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("missing name")
	}
	kind, err := ParseKind(e.Kind)
	if err != nil {
		return fmt.Errorf("%q: %w", e.Name, err)
	}
	switch kind {
	case KindStaticData, KindStaticTemplate, KindIterator:
		if e.Text != "" && e.File != "" {
			return fmt.Errorf("%q: text and file are mutually exclusive", e.Name)
		}
	case KindComputedTemplate:
		if e.Env == "" {
			return fmt.Errorf("%q: computed_template needs env", e.Name)
		}
	case KindConditional:
		if e.Env == "" {
			return fmt.Errorf("%q: conditional needs env", e.Name)
		}
	case KindLiveData:
		if e.Env == "" && e.Prompt == "" {
			return fmt.Errorf("%q: live_data needs env or prompt", e.Name)
		}
	}
	return nil
}

// Prompts lists the questions to ask before Apply, in manifest order.
func (m *Manifest) Prompts() []Prompt {
	var out []Prompt
	for _, e := range m.Entries {
		if e.Prompt != "" {
			out = append(out, Prompt{Name: e.Name, Message: e.Prompt, Default: e.Default})
		}
	}
	return out
}

// Apply registers every entry in reg. It stops at the first failure.
func (m *Manifest) Apply(reg *Registry, b Bindings) error {
	for _, me := range m.Entries {
		e, err := m.entry(me, b)
		if err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidManifest, me.Name, err)
		}
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manifest) entry(me ManifestEntry, b Bindings) (Entry, error) {
	kind, err := ParseKind(me.Kind)
	if err != nil {
		return Entry{}, err
	}
	switch kind {
	case KindStaticData, KindStaticTemplate:
		data, err := m.read(me)
		if err != nil {
			return Entry{}, err
		}
		if me.Escape && kind == KindStaticData {
			return EscapedText(me.Name, string(data)), nil
		}
		return Entry{name: me.Name, kind: kind, src: m.source(me, data)}, nil
	case KindLiveData:
		fn := liveBinding(me, b)
		if me.Escape {
			fn = EscapedLive(fn)
		}
		return Live(me.Name, fn), nil
	case KindComputedTemplate:
		return Computed(me.Name, ComputedTemplate{Get: func() []byte {
			v, ok := b.env(me.Env)
			if !ok {
				return nil
			}
			return []byte(v)
		}}), nil
	case KindConditional:
		return Cond(me.Name, Conditional{
			Evaluate: func() Branch { return envBranch(b, me.Env) },
			True:     me.Then,
			False:    me.Else,
		}), nil
	default:
		data, err := m.read(me)
		if err != nil {
			return Entry{}, err
		}
		src := m.source(me, data)
		items := make([][]Entry, len(me.Items))
		for i, vals := range me.Items {
			items[i] = overrides(vals)
		}
		return Iter(me.Name, FromSlice(items, func(ov []Entry) Item {
			return Item{Template: src, Overrides: ov}
		})), nil
	}
}

// read returns the entry's inline text or file contents.
func (m *Manifest) read(me ManifestEntry) ([]byte, error) {
	if me.File == "" {
		return []byte(me.Text), nil
	}
	if m.fsys == nil {
		return nil, fmt.Errorf("file %q: no filesystem", me.File)
	}
	return fs.ReadFile(m.fsys, path.Join(m.dir, me.File))
}

// source wraps data in the locality the entry asks for.
func (m *Manifest) source(me ManifestEntry, data []byte) Source {
	if me.Bulk {
		return BulkReader(bytes.NewReader(data), len(data))
	}
	return DirectBytes(data)
}

func liveBinding(me ManifestEntry, b Bindings) LiveFunc {
	if me.Prompt != "" {
		answer, ok := b.Answers[me.Name]
		if !ok {
			answer = me.Default
		}
		return func() string { return answer }
	}
	return func() string {
		if v, ok := b.env(me.Env); ok {
			return v
		}
		return me.Default
	}
}

func envBranch(b Bindings, key string) Branch {
	v, ok := b.env(key)
	if !ok || strings.TrimSpace(v) == "" {
		return Skip
	}
	if on, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil && on {
		return TrueBranch
	}
	return FalseBranch
}

// overrides turns name/value pairs into static data overrides in a stable
// order.
func overrides(vals map[string]string) []Entry {
	names := make([]string, 0, len(vals))
	for k := range vals {
		names = append(names, k)
	}
	slices.Sort(names)
	out := make([]Entry, len(names))
	for i, k := range names {
		out[i] = Text(k, vals[k])
	}
	return out
}
