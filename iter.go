package streamtpl

import (
	"iter"
)

// FromSeq returns an Iterator rendering one item per element of seq. Each
// render pulls from a fresh run of seq, and the pull is stopped when the
// iterator frame is popped.
func FromSeq[T any](seq iter.Seq[T], item func(T) Item) Iterator {
	return FromSeq2(withNilErr(seq), item)
}

// FromSeq2 is FromSeq for sequences that can fail. A non-nil error ends the
// render in StateError.
func FromSeq2[T any](seq iter.Seq2[T, error], item func(T) Item) Iterator {
	return Iterator{
		Open: func(any) any {
			next, stop := iter.Pull2(seq)
			return &pulled[T]{next: next, stop: stop}
		},
		Next: func(h any, it *Item) Step {
			p := h.(*pulled[T])
			v, err, ok := p.next()
			switch {
			case !ok:
				return Done
			case err != nil:
				return Failed
			}
			*it = item(v)
			return ItemReady
		},
		Close: func(h any) {
			if p, ok := h.(*pulled[T]); ok {
				p.stop()
			}
		},
	}
}

type pulled[T any] struct {
	next func() (T, error, bool)
	stop func()
}

// FromSlice returns an Iterator over items. The slice is read, not copied.
func FromSlice[T any](items []T, item func(T) Item) Iterator {
	return Iterator{
		Open: func(any) any { return new(int) },
		Next: func(h any, it *Item) Step {
			i := h.(*int)
			if *i >= len(items) {
				return Done
			}
			*it = item(items[*i])
			*i++
			return ItemReady
		},
	}
}

// FromChan returns an Iterator draining ch until it is closed. A channel can
// be drained only once, so the iterator is good for a single render.
func FromChan[T any](ch <-chan T, item func(T) Item) Iterator {
	return FromSeq(chanToIter(ch), item)
}

func chanToIter[T any](ch <-chan T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range ch {
			if !yield(v) {
				return
			}
		}
	}
}

func withNilErr[T any](seq iter.Seq[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	}
}
