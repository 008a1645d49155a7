// Package streamtpl renders %NAME% templates incrementally through a small,
// caller-supplied buffer.
//
// Output is produced in chunks: each call to [Renderer.Next] fills at most
// the given buffer and returns. All progress lives in a [Context], so a render
// can stop after any call and continue later, and the concatenated output is
// the same for any sequence of buffer sizes. Memory use is bounded by the
// [Config] limits regardless of template size or nesting.
//
// # Placeholders
//
// A placeholder is a name wrapped in [Delim], for example %TITLE%. Names are
// case-sensitive and include their delimiters. Unknown names render as
// nothing. Placeholders are registered in a [Registry] as one of six kinds:
//
//   - [StaticData] renders a blob verbatim.
//   - [StaticTemplate] renders a nested template.
//   - [Live] calls a getter for the current value.
//   - [Computed] builds a template when the placeholder is reached.
//   - [Cond] delegates to one of two registered placeholders.
//   - [Iter] renders an item template once per item, with per-item overrides.
//
// # Storage
//
// A [Source] is either direct (in memory, see [DirectBytes]) or bulk (read
// through an io.ReaderAt in bounded chunks, see [BulkReader]). Bulk sources
// are never loaded whole.
//
// # Rendering
//
//	reg := streamtpl.NewRegistry()
//	_ = reg.Register(streamtpl.Text("%NAME%", "world"))
//
//	r := streamtpl.NewRenderer()
//	c := streamtpl.NewContext(reg)
//	_ = r.Initialize(c, streamtpl.DirectString("Hello, %NAME%!"))
//
//	buf := make([]byte, 16)
//	for !r.IsComplete(c) && !r.HasError(c) {
//		n := r.Next(c, buf)
//		os.Stdout.Write(buf[:n])
//	}
//
// [Render], [Stream], and [NewReader] wrap this loop. A [Pool] recycles
// contexts for servers.
//
// # Errors
//
// Resolution problems (unknown names, malformed or unterminated
// placeholders, missing branches) are logged and skipped. Stack overflow,
// stack underflow, bulk read failures, and failed iterators end the render in
// [StateError]; [Context.Err] returns the cause and every opened iterator is
// closed exactly once.
//
// # Diagnostics
//
// [WriteEntries] and [WriteFrames] describe a registry or a live stack in any
// [Format], including a caller-supplied [GoTemplate]. [Context.Trace] returns a
// compact text dump and [Context.Stats] the render counters.
package streamtpl
