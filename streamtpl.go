package streamtpl

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	ErrRegistryFull      = errors.New("registry full")
	ErrInvalidName       = errors.New("invalid placeholder name")
	ErrMissingCallback   = errors.New("missing required callback")
	ErrUnknownKind       = errors.New("unknown placeholder kind")
	ErrStackOverflow     = errors.New("rendering stack overflow")
	ErrStackUnderflow    = errors.New("rendering stack underflow")
	ErrRenderFailed      = errors.New("render failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInvalidConfig     = errors.New("invalid config")
	ErrInvalidManifest   = errors.New("invalid manifest")
	ErrInvalidTemplate   = errors.New("invalid report template")
)

// Delim opens and closes a placeholder name in template text.
const Delim = '%'

// Kind identifies how a placeholder produces its output.
type Kind string

const (
	KindStaticData       Kind = "static_data"
	KindStaticTemplate   Kind = "static_template"
	KindComputedTemplate Kind = "computed_template"
	KindLiveData         Kind = "live_data"
	KindConditional      Kind = "conditional"
	KindIterator         Kind = "iterator"
)

var kinds = []Kind{
	KindStaticData, KindStaticTemplate, KindComputedTemplate,
	KindLiveData, KindConditional, KindIterator,
}

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Kinds returns all placeholder kinds.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind parses a kind name. Matching ignores case and surrounding space.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Locality tells how a Source is read.
type Locality int

const (
	// Bulk storage is copy-only: every read goes through a chunked ReadAt.
	Bulk Locality = iota
	// Direct storage is addressable memory.
	Direct
)

func (l Locality) String() string {
	switch l {
	case Bulk:
		return "bulk"
	case Direct:
		return "direct"
	default:
		return "unknown"
	}
}

// Source is an immutable byte sequence plus its length and locality.
// The zero Source is an empty direct source.
type Source struct {
	data []byte
	bulk io.ReaderAt
	n    int
	loc  Locality
}

// DirectBytes returns a Source reading b in place.
func DirectBytes(b []byte) Source {
	return Source{data: b, n: len(b), loc: Direct}
}

// DirectString returns a direct Source over s.
func DirectString(s string) Source {
	return DirectBytes([]byte(s))
}

// BulkReader returns a Source of n bytes that is only ever read through
// r.ReadAt, in chunks no larger than the caller's staging buffer.
func BulkReader(r io.ReaderAt, n int) Source {
	if r == nil || n < 0 {
		n = 0
	}
	return Source{bulk: r, n: n, loc: Bulk}
}

// BulkString returns a bulk Source over s.
func BulkString(s string) Source {
	return BulkReader(strings.NewReader(s), len(s))
}

// Len returns the source length in bytes.
func (s Source) Len() int { return s.n }

// Locality returns where the source lives.
func (s Source) Locality() Locality { return s.loc }

// Truncate returns s limited to its first n bytes.
func (s Source) Truncate(n int) Source {
	if n < 0 {
		n = 0
	}
	if n < s.n {
		s.n = n
		if s.data != nil {
			s.data = s.data[:n]
		}
	}
	return s
}

// CopyAt copies up to len(p) bytes starting at off into p. It returns the
// number of bytes copied; zero means off is at or past the end.
func (s Source) CopyAt(p []byte, off int) (int, error) {
	if off >= s.n || len(p) == 0 {
		return 0, nil
	}
	if rem := s.n - off; len(p) > rem {
		p = p[:rem]
	}
	if s.loc == Direct || s.bulk == nil {
		return copy(p, s.data[off:s.n]), nil
	}
	n, err := s.bulk.ReadAt(p, int64(off))
	if n == len(p) || (n > 0 && errors.Is(err, io.EOF)) {
		return n, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return n, fmt.Errorf("bulk read at %d: %w", off, err)
}
