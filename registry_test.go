package streamtpl_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/streamtpl"
)

func TestRegistryRegisterValidation(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		entry   streamtpl.Entry
		wantErr error
	}{
		"static data": {
			entry: streamtpl.Text("%A%", "x"),
		},
		"longest allowed name": {
			entry: streamtpl.Text("%"+strings.Repeat("N", 21)+"%", "x"),
		},
		"empty name": {
			entry:   streamtpl.Text("", "x"),
			wantErr: streamtpl.ErrInvalidName,
		},
		"name at limit": {
			entry:   streamtpl.Text("%"+strings.Repeat("N", 22)+"%", "x"),
			wantErr: streamtpl.ErrInvalidName,
		},
		"live without getter": {
			entry:   streamtpl.Live("%L%", nil),
			wantErr: streamtpl.ErrMissingCallback,
		},
		"computed without getter": {
			entry:   streamtpl.Computed("%C%", streamtpl.ComputedTemplate{}),
			wantErr: streamtpl.ErrMissingCallback,
		},
		"conditional without evaluator": {
			entry:   streamtpl.Cond("%C%", streamtpl.Conditional{True: "%A%"}),
			wantErr: streamtpl.ErrMissingCallback,
		},
		"iterator without next": {
			entry:   streamtpl.Iter("%I%", streamtpl.Iterator{Open: func(any) any { return nil }}),
			wantErr: streamtpl.ErrMissingCallback,
		},
		"iterator with only next": {
			entry: streamtpl.Iter("%I%", streamtpl.Iterator{Next: func(any, *streamtpl.Item) streamtpl.Step { return streamtpl.Done }}),
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			reg := streamtpl.NewRegistry()
			err := reg.Register(tt.entry)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, reg.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, reg.Len())
		})
	}
}

func TestRegistryCapacity(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry(streamtpl.WithCapacity(2))
	require.NoError(t, reg.RegisterStaticData("%A%", streamtpl.DirectString("a")))
	require.NoError(t, reg.RegisterStaticTemplate("%B%", streamtpl.DirectString("b")))
	err := reg.RegisterLiveData("%C%", func() string { return "c" })
	require.ErrorIs(t, err, streamtpl.ErrRegistryFull)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 2, reg.Cap())
}

func TestRegistryDefaultCapacity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, streamtpl.DefaultCapacity, streamtpl.NewRegistry().Cap())
}

func TestRegistryLookupNewestFirst(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.Register(streamtpl.Text("%A%", "first")))
	require.NoError(t, reg.Register(streamtpl.Text("%B%", "other")))
	require.NoError(t, reg.Register(streamtpl.Text("%A%", "second")))

	e, ok := reg.Lookup("%A%")
	require.True(t, ok)
	assert.Equal(t, "%A%", e.Name())
	assert.Equal(t, streamtpl.KindStaticData, e.Kind())
	assert.Equal(t, 6, e.Source().Len())

	_, ok = reg.Lookup("%a%")
	assert.False(t, ok)

	var nilReg *streamtpl.Registry
	_, ok = nilReg.Lookup("%A%")
	assert.False(t, ok)
}

func TestRegistryRenderChunks(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry(streamtpl.WithChunkSizes(4, 2))
	require.NoError(t, reg.Register(streamtpl.StaticData("%BULK%", streamtpl.BulkString("abcdefgh"))))
	require.NoError(t, reg.Register(streamtpl.Text("%DIRECT%", "abcdefgh")))
	require.NoError(t, reg.RegisterLiveData("%LIVE%", func() string { return "abcdefgh" }))
	require.NoError(t, reg.RegisterConditional("%COND%", streamtpl.Conditional{
		Evaluate: func() streamtpl.Branch { return streamtpl.TrueBranch },
		True:     "%DIRECT%",
	}))

	tests := map[string]struct {
		name string
		off  int
		size int
		want string
	}{
		"bulk capped":          {name: "%BULK%", off: 0, size: 16, want: "abcd"},
		"bulk from offset":     {name: "%BULK%", off: 6, size: 16, want: "gh"},
		"bulk small buffer":    {name: "%BULK%", off: 1, size: 3, want: "bcd"},
		"bulk past end":        {name: "%BULK%", off: 8, size: 16, want: ""},
		"direct capped":        {name: "%DIRECT%", off: 0, size: 16, want: "ab"},
		"direct from offset":   {name: "%DIRECT%", off: 7, size: 16, want: "h"},
		"live capped":          {name: "%LIVE%", off: 2, size: 16, want: "cd"},
		"live past end":        {name: "%LIVE%", off: 9, size: 16, want: ""},
		"conditional is empty": {name: "%COND%", off: 0, size: 16, want: ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e, ok := reg.Lookup(tt.name)
			require.True(t, ok)
			p := make([]byte, tt.size)
			n, err := reg.Render(e, tt.off, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(p[:n]))
		})
	}
}

func TestRegistryRenderNil(t *testing.T) {
	t.Parallel()
	var reg *streamtpl.Registry
	e := streamtpl.Text("%A%", strings.Repeat("x", 300))
	p := make([]byte, 300)
	n, err := reg.Render(&e, 0, p)
	require.NoError(t, err)
	assert.Equal(t, streamtpl.DefaultDirectChunk, n)

	n, err = reg.Render(nil, 0, p)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistryClear(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry(streamtpl.WithCapacity(3))
	require.NoError(t, reg.Register(streamtpl.Text("%A%", "a")))
	require.NoError(t, reg.Register(streamtpl.Text("%B%", "b")))
	reg.Clear()
	assert.Zero(t, reg.Len())
	assert.Equal(t, 3, reg.Cap())
	_, ok := reg.Lookup("%A%")
	assert.False(t, ok)
	for _, n := range []string{"%X%", "%Y%", "%Z%"} {
		require.NoError(t, reg.Register(streamtpl.Text(n, "v")))
	}
}

func TestRegistryEntries(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.Register(streamtpl.Text("%A%", "old")))
	require.NoError(t, reg.Register(streamtpl.StaticTemplate("%T%", streamtpl.BulkString("tpl"))))
	require.NoError(t, reg.RegisterLiveData("%L%", func() string { return "live!" }))
	require.NoError(t, reg.RegisterConditional("%C%", streamtpl.Conditional{
		Evaluate: func() streamtpl.Branch { return streamtpl.Skip },
	}))
	require.NoError(t, reg.Register(streamtpl.Text("%A%", "newer")))

	want := []streamtpl.EntryInfo{
		{Name: "%A%", Kind: streamtpl.KindStaticData, Locality: "direct", Length: 3, Shadowed: true},
		{Name: "%T%", Kind: streamtpl.KindStaticTemplate, Locality: "bulk", Length: 3},
		{Name: "%L%", Kind: streamtpl.KindLiveData, Locality: "direct", Length: 5},
		{Name: "%C%", Kind: streamtpl.KindConditional},
		{Name: "%A%", Kind: streamtpl.KindStaticData, Locality: "direct", Length: 5},
	}
	if diff := cmp.Diff(want, reg.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		input   string
		want    streamtpl.Kind
		wantErr require.ErrorAssertionFunc
	}{
		"static data":   {input: "static_data", want: streamtpl.KindStaticData, wantErr: require.NoError},
		"mixed case":    {input: " Live_Data ", want: streamtpl.KindLiveData, wantErr: require.NoError},
		"iterator":      {input: "iterator", want: streamtpl.KindIterator, wantErr: require.NoError},
		"unknown":       {input: "blob", want: "", wantErr: require.Error},
		"empty":         {input: "", want: "", wantErr: require.Error},
		"computed":      {input: "computed_template", want: streamtpl.KindComputedTemplate, wantErr: require.NoError},
		"conditional":   {input: "conditional", want: streamtpl.KindConditional, wantErr: require.NoError},
		"template kind": {input: "static_template", want: streamtpl.KindStaticTemplate, wantErr: require.NoError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := streamtpl.ParseKind(tt.input)
			tt.wantErr(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKinds(t *testing.T) {
	t.Parallel()
	got := streamtpl.Kinds()
	assert.Len(t, got, 6)
	// Returned slice must be a copy.
	got[0] = "modified"
	assert.Equal(t, streamtpl.KindStaticData, streamtpl.Kinds()[0])
}

func TestSource(t *testing.T) {
	t.Parallel()
	direct := streamtpl.DirectString("hello")
	assert.Equal(t, 5, direct.Len())
	assert.Equal(t, streamtpl.Direct, direct.Locality())
	assert.Equal(t, "direct", direct.Locality().String())

	bulk := streamtpl.BulkString("hello")
	assert.Equal(t, streamtpl.Bulk, bulk.Locality())
	assert.Equal(t, "bulk", bulk.Locality().String())

	p := make([]byte, 3)
	n, err := bulk.CopyAt(p, 3)
	require.NoError(t, err)
	assert.Equal(t, "lo", string(p[:n]))

	short := bulk.Truncate(2)
	assert.Equal(t, 2, short.Len())
	n, err = short.CopyAt(p, 0)
	require.NoError(t, err)
	assert.Equal(t, "he", string(p[:n]))
	assert.Equal(t, 5, bulk.Truncate(10).Len())

	var zero streamtpl.Source
	assert.Zero(t, zero.Len())
	n, err = zero.CopyAt(p, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Zero(t, streamtpl.BulkReader(nil, 10).Len())
	_, err = streamtpl.BulkReader(failingReaderAt{}, 4).CopyAt(p, 0)
	assert.ErrorIs(t, err, errStorage)
}
