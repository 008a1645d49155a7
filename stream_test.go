package streamtpl_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/streamtpl"
)

func TestRender(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterIterator("%HOSTS%", streamtpl.FromSlice(hosts, hostItem)))

	tests := map[string]struct {
		buf []byte
	}{
		"tiny buffer":    {buf: make([]byte, 1)},
		"default buffer": {buf: nil},
		"large buffer":   {buf: make([]byte, 4096)},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			c := streamtpl.NewContext(reg)
			n, err := streamtpl.Render(&out, streamtpl.NewRenderer(), c, streamtpl.DirectString("<%HOSTS%>"), tt.buf)
			require.NoError(t, err)
			assert.Equal(t, "<alpha:up;beta:down;gamma:up;>", out.String())
			assert.Equal(t, int64(out.Len()), n)
			assert.Equal(t, streamtpl.StateComplete, c.State())
		})
	}
}

func TestRenderFailure(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterStaticTemplate("%SELF%", streamtpl.DirectString("x%SELF%")))

	var out bytes.Buffer
	c := streamtpl.NewContext(reg)
	_, err := streamtpl.Render(&out, streamtpl.NewRenderer(), c, streamtpl.DirectString("%SELF%"), nil)
	require.ErrorIs(t, err, streamtpl.ErrRenderFailed)
	require.ErrorIs(t, err, streamtpl.ErrStackOverflow)
	assert.Equal(t, "xxxxxxx", out.String())
}

func TestRenderWriteError(t *testing.T) {
	t.Parallel()
	ci := &countingIterator{tpl: "%SSID%,", items: networks()}
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterIterator("%LIST%", ci.iterator()))

	c := streamtpl.NewContext(reg)
	_, err := streamtpl.Render(failWriter{}, streamtpl.NewRenderer(), c, streamtpl.DirectString("%LIST%"), make([]byte, 2))
	require.ErrorIs(t, err, errWrite)
	assert.Contains(t, err.Error(), "writing output")
	assert.Equal(t, 1, ci.opens)
	assert.Equal(t, 1, ci.closes)
	assert.Zero(t, c.Depth())
}

// cancelWriter cancels its context once it has seen limit bytes.
type cancelWriter struct {
	bytes.Buffer
	limit  int
	cancel context.CancelFunc
}

func (w *cancelWriter) Write(p []byte) (int, error) {
	n, err := w.Buffer.Write(p)
	if w.Len() >= w.limit {
		w.cancel()
	}
	return n, err
}

func TestStreamCancel(t *testing.T) {
	t.Parallel()
	ci := &countingIterator{tpl: "%SSID% ", items: networks()}
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterIterator("%LIST%", ci.iterator()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := &cancelWriter{limit: 4, cancel: cancel}
	c := streamtpl.NewContext(reg)
	n, err := streamtpl.Stream(ctx, w, streamtpl.NewRenderer(), c, streamtpl.DirectString("%LIST%"), make([]byte, 4))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "home", w.String())
	assert.Equal(t, 1, ci.closes)
	assert.Zero(t, c.Depth())
}

func TestReader(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterIterator("%HOSTS%", streamtpl.FromSlice(hosts, hostItem)))

	r := streamtpl.NewRenderer()
	c := streamtpl.NewContext(reg)
	require.NoError(t, r.Initialize(c, streamtpl.DirectString("%HOSTS%")))
	got, err := io.ReadAll(streamtpl.NewReader(r, c))
	require.NoError(t, err)
	assert.Equal(t, "alpha:up;beta:down;gamma:up;", string(got))

	rd := streamtpl.NewReader(r, c)
	n, err := rd.Read(make([]byte, 8))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	n, err = rd.Read(nil)
	assert.Zero(t, n)
	assert.NoError(t, err)
}

func TestReaderError(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterStaticTemplate("%BOOM%", streamtpl.BulkReader(failingReaderAt{}, 8)))

	r := streamtpl.NewRenderer()
	c := streamtpl.NewContext(reg)
	require.NoError(t, r.Initialize(c, streamtpl.DirectString("ok %BOOM%")))
	got, err := io.ReadAll(streamtpl.NewReader(r, c))
	assert.Equal(t, "ok ", string(got))
	require.ErrorIs(t, err, streamtpl.ErrRenderFailed)
	require.ErrorIs(t, err, errStorage)
}

func TestReaderStepCap(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.Register(streamtpl.Text("%E%", "")))
	tpl := strings.Repeat("%E%", 100) + "end"

	r := streamtpl.NewRenderer(streamtpl.WithMaxSteps(3))
	c := streamtpl.NewContext(reg)
	require.NoError(t, r.Initialize(c, streamtpl.DirectString(tpl)))
	got, err := io.ReadAll(streamtpl.NewReader(r, c))
	require.NoError(t, err)
	assert.Equal(t, "end", string(got))
}

func TestPool(t *testing.T) {
	t.Parallel()
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterIterator("%HOSTS%", streamtpl.FromSlice(hosts, hostItem)))
	pool := streamtpl.NewPool(reg, streamtpl.WithBufferSize(7))
	want := "alpha:up;beta:down;gamma:up;"

	var wg sync.WaitGroup
	errs := make([]error, 16)
	outs := make([]string, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out bytes.Buffer
			_, errs[i] = pool.Render(&out, streamtpl.DirectString(fmt.Sprintf("%d:%%HOSTS%%", i)))
			outs[i] = out.String()
		}()
	}
	wg.Wait()
	for i := range 16 {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("%d:%s", i, want), outs[i])
	}
}

// chunkRecorder keeps every write as a separate chunk.
type chunkRecorder struct {
	chunks []string
}

func (w *chunkRecorder) Write(p []byte) (int, error) {
	w.chunks = append(w.chunks, string(p))
	return len(p), nil
}

func TestPoolStream(t *testing.T) {
	t.Parallel()
	ci := &countingIterator{tpl: "%SSID% ", items: networks()}
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterIterator("%LIST%", ci.iterator()))
	pool := streamtpl.NewPool(reg, streamtpl.WithOutputChunk(5))

	var w chunkRecorder
	n, err := pool.Stream(context.Background(), &w, streamtpl.DirectString("%LIST%"))
	require.NoError(t, err)
	got := strings.Join(w.chunks, "")
	assert.Equal(t, int64(len(got)), n)
	for _, chunk := range w.chunks {
		assert.LessOrEqual(t, len(chunk), 5)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err = pool.Stream(ctx, &w, streamtpl.DirectString("%LIST%"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Equal(t, ci.opens, ci.closes)
}

func TestPoolPutUnwinds(t *testing.T) {
	t.Parallel()
	ci := &countingIterator{tpl: "%SSID%", items: networks()}
	reg := streamtpl.NewRegistry()
	require.NoError(t, reg.RegisterIterator("%LIST%", ci.iterator()))
	pool := streamtpl.NewPool(reg)

	c := pool.Get()
	r := pool.Renderer()
	require.NoError(t, r.Initialize(c, streamtpl.DirectString("%LIST%")))
	buf := make([]byte, 2)
	require.Equal(t, 2, r.Next(c, buf))
	pool.Put(c)
	assert.Equal(t, 1, ci.closes)
	assert.Zero(t, c.Depth())
	assert.Equal(t, streamtpl.StateText, c.State())

	pool.Put(nil)
}
