package exec

import "github.com/wbrown/sparqlite/algebra"

// Stream is the lazy, single-pass binding-stream contract:
// Next/Binding/Err/Close. Every operation below returns
// one, and every Stream must be safe to Close before exhausting it.
type Stream interface {
	Next() bool
	Binding() algebra.Binding
	Err() error
	Close() error
}

// sliceStream replays a materialized slice of bindings; used by
// operators (Distinct, OrderBy, Group) that must see every input
// binding before producing their first output.
type sliceStream struct {
	items []algebra.Binding
	pos   int
}

func newSliceStream(items []algebra.Binding) *sliceStream { return &sliceStream{items: items, pos: -1} }

func (s *sliceStream) Next() bool {
	s.pos++
	return s.pos < len(s.items)
}
func (s *sliceStream) Binding() algebra.Binding { return s.items[s.pos] }
func (s *sliceStream) Err() error               { return nil }
func (s *sliceStream) Close() error             { return nil }

// unitStream yields exactly one binding, the seed for execute_bgp and
// the base case of every other lazy evaluation.
func unitStream(b algebra.Binding) Stream { return newSliceStream([]algebra.Binding{b}) }

// emptyStream yields nothing.
func emptyStream() Stream { return newSliceStream(nil) }

// drain materializes every binding of s, then closes it. Operators
// that must see their whole input (Distinct, Group, OrderBy) use it
// instead of hand-rolled loops.
func drain(s Stream) ([]algebra.Binding, error) {
	defer s.Close()
	var out []algebra.Binding
	for s.Next() {
		out = append(out, s.Binding())
	}
	return out, s.Err()
}

// filterStream lazily filters an underlying stream with keep.
type filterStream struct {
	src  Stream
	keep func(algebra.Binding) bool
	err  error
}

func (s *filterStream) Next() bool {
	for s.src.Next() {
		b := s.src.Binding()
		if s.keep(b) {
			return true
		}
	}
	s.err = s.src.Err()
	return false
}
func (s *filterStream) Binding() algebra.Binding { return s.src.Binding() }
func (s *filterStream) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.src.Err()
}
func (s *filterStream) Close() error { return s.src.Close() }

// mapStream lazily transforms each binding of an underlying stream.
type mapStream struct {
	src Stream
	fn  func(algebra.Binding) (algebra.Binding, bool)
	cur algebra.Binding
}

func (s *mapStream) Next() bool {
	for s.src.Next() {
		b, ok := s.fn(s.src.Binding())
		if ok {
			s.cur = b
			return true
		}
	}
	return false
}
func (s *mapStream) Binding() algebra.Binding { return s.cur }
func (s *mapStream) Err() error               { return s.src.Err() }
func (s *mapStream) Close() error             { return s.src.Close() }

// concatStream runs two streams in sequence (SPARQL UNION: duplicates
// are preserved).
type concatStream struct {
	first, second Stream
	onFirst       bool
}

func newConcatStream(a, b Stream) *concatStream { return &concatStream{first: a, second: b, onFirst: true} }

func (s *concatStream) Next() bool {
	if s.onFirst {
		if s.first.Next() {
			return true
		}
		s.onFirst = false
	}
	return s.second.Next()
}
func (s *concatStream) Binding() algebra.Binding {
	if s.onFirst {
		return s.first.Binding()
	}
	return s.second.Binding()
}
func (s *concatStream) Err() error {
	if err := s.first.Err(); err != nil {
		return err
	}
	return s.second.Err()
}
func (s *concatStream) Close() error {
	err1 := s.first.Close()
	err2 := s.second.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
