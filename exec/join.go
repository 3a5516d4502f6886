package exec

import (
	"github.com/zeebo/xxh3"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/expr"
)

// bucketKey hashes a binding's shared-variable projection to a bucket
// id for the hash-join build side. A collision only costs an extra
// Compatible() check, never a wrong answer, since bucket membership is
// always re-verified against the real bound values.
func bucketKey(b algebra.Binding, keys []algebra.Symbol) uint64 {
	return xxh3.HashString(b.Key(keys))
}

// sharedVars returns the variables common to l and r's projected
// output, used to decide hash-join bucket keys and OPTIONAL/MINUS
// compatibility checks.
func sharedVars(l, r []algebra.Symbol) []algebra.Symbol {
	rset := make(map[algebra.Symbol]bool, len(r))
	for _, v := range r {
		rset[v] = true
	}
	var out []algebra.Symbol
	for _, v := range l {
		if rset[v] {
			out = append(out, v)
		}
	}
	return out
}

// JoinStrategy selects the physical algorithm ExecuteJoinStrategy
// runs. Auto defaults to hash.
type JoinStrategy int

const (
	JoinAuto JoinStrategy = iota
	JoinHash
	JoinNestedLoop
)

// ExecuteJoin implements SPARQL inner join: keep (lb, rb) pairs whose
// shared variables agree, merging bound variables from both sides. It
// materializes the right side into hash buckets keyed by the shared
// variables, falling back to a Cartesian nested-loop when there are none.
func ExecuteJoin(left, right Stream, leftVars, rightVars []algebra.Symbol) (Stream, error) {
	return ExecuteJoinStrategy(left, right, leftVars, rightVars, JoinAuto)
}

// ExecuteJoinStrategy is ExecuteJoin with an explicit algorithm choice.
// Both strategies materialize the right side; nested-loop probes every
// right row per left binding, hash probes only the matching bucket.
func ExecuteJoinStrategy(left, right Stream, leftVars, rightVars []algebra.Symbol, strategy JoinStrategy) (Stream, error) {
	keys := sharedVars(leftVars, rightVars)
	rightRows, err := drain(right)
	if err != nil {
		return nil, err
	}
	if strategy == JoinNestedLoop {
		return &nestedLoopJoinStream{left: left, rightRows: rightRows}, nil
	}
	buckets := make(map[uint64][]algebra.Binding)
	for _, rb := range rightRows {
		k := bucketKey(rb, keys)
		buckets[k] = append(buckets[k], rb)
	}
	return &hashJoinStream{left: left, buckets: buckets, keys: keys}, nil
}

// nestedLoopJoinStream probes the full materialized right side for
// every left binding. Quadratic, but cheaper than hashing when both
// inputs are tiny.
type nestedLoopJoinStream struct {
	left      Stream
	rightRows []algebra.Binding

	leftRow algebra.Binding
	idx     int
	probing bool
	merged  algebra.Binding
	err     error
}

func (s *nestedLoopJoinStream) Next() bool {
	for {
		if s.probing {
			for s.idx < len(s.rightRows) {
				rb := s.rightRows[s.idx]
				s.idx++
				if s.leftRow.Compatible(rb) {
					s.merged = s.leftRow.Merge(rb)
					return true
				}
			}
			s.probing = false
		}
		if !s.left.Next() {
			s.err = s.left.Err()
			return false
		}
		s.leftRow = s.left.Binding()
		s.idx = 0
		s.probing = true
	}
}

func (s *nestedLoopJoinStream) Binding() algebra.Binding { return s.merged }
func (s *nestedLoopJoinStream) Err() error               { return s.err }
func (s *nestedLoopJoinStream) Close() error             { return s.left.Close() }

type hashJoinStream struct {
	left    Stream
	buckets map[uint64][]algebra.Binding
	keys    []algebra.Symbol

	candidates []algebra.Binding
	leftRow    algebra.Binding
	merged     algebra.Binding
	idx        int
	err        error
}

func (s *hashJoinStream) Next() bool {
	for {
		if s.candidates != nil {
			for s.idx < len(s.candidates) {
				rb := s.candidates[s.idx]
				s.idx++
				if s.leftRow.Compatible(rb) {
					s.merged = s.leftRow.Merge(rb)
					return true
				}
			}
			s.candidates = nil
		}
		if !s.left.Next() {
			s.err = s.left.Err()
			return false
		}
		s.leftRow = s.left.Binding()
		s.candidates = s.buckets[bucketKey(s.leftRow, s.keys)]
		s.idx = 0
	}
}

func (s *hashJoinStream) Binding() algebra.Binding { return s.merged }
func (s *hashJoinStream) Err() error               { return s.err }
func (s *hashJoinStream) Close() error             { return s.left.Close() }

// ExecuteLeftJoin implements SPARQL OPTIONAL: every left binding is
// preserved even when no compatible right binding exists (or when
// filterExpr rejects every candidate merge).
func ExecuteLeftJoin(e *expr.Evaluator, left, right Stream, leftVars, rightVars []algebra.Symbol, filter algebra.Expr) (Stream, error) {
	keys := sharedVars(leftVars, rightVars)
	rightRows, err := drain(right)
	if err != nil {
		return nil, err
	}
	buckets := make(map[uint64][]algebra.Binding)
	for _, rb := range rightRows {
		k := bucketKey(rb, keys)
		buckets[k] = append(buckets[k], rb)
	}
	return &leftJoinStream{evaluator: e, left: left, buckets: buckets, keys: keys, filter: filter}, nil
}

type leftJoinStream struct {
	evaluator *expr.Evaluator
	left      Stream
	buckets   map[uint64][]algebra.Binding
	keys      []algebra.Symbol
	filter    algebra.Expr

	leftRow    algebra.Binding
	candidates []algebra.Binding
	idx        int
	emittedAny bool
	merged     algebra.Binding
	err        error
}

func (s *leftJoinStream) passesFilter(b algebra.Binding) bool {
	if s.filter == nil {
		return true
	}
	v, err := s.evaluator.Evaluate(s.filter, b)
	if err != nil {
		return false
	}
	ok, err := expr.EffectiveBooleanValue(v)
	return err == nil && ok
}

func (s *leftJoinStream) Next() bool {
	for {
		if s.candidates != nil {
			for s.idx < len(s.candidates) {
				rb := s.candidates[s.idx]
				s.idx++
				if !s.leftRow.Compatible(rb) {
					continue
				}
				m := s.leftRow.Merge(rb)
				if !s.passesFilter(m) {
					continue
				}
				s.emittedAny = true
				s.merged = m
				return true
			}
			s.candidates = nil
			if !s.emittedAny {
				s.merged = s.leftRow
				return true
			}
		}
		if !s.left.Next() {
			s.err = s.left.Err()
			return false
		}
		s.leftRow = s.left.Binding()
		s.candidates = s.buckets[bucketKey(s.leftRow, s.keys)]
		if s.candidates == nil {
			s.candidates = []algebra.Binding{}
		}
		s.idx = 0
		s.emittedAny = false
	}
}

func (s *leftJoinStream) Binding() algebra.Binding { return s.merged }
func (s *leftJoinStream) Err() error               { return s.err }
func (s *leftJoinStream) Close() error             { return s.left.Close() }

// ExecuteMinus removes from left every binding compatible with some
// right binding sharing at least one variable (SPARQL MINUS semantics:
// disjoint-domain bindings never eliminate each other).
func ExecuteMinus(left, right Stream, leftVars, rightVars []algebra.Symbol) (Stream, error) {
	rightRows, err := drain(right)
	if err != nil {
		return nil, err
	}
	keys := sharedVars(leftVars, rightVars)
	return &filterStream{
		src: left,
		keep: func(b algebra.Binding) bool {
			if len(keys) == 0 {
				return true
			}
			for _, rb := range rightRows {
				if b.SharesDomain(rb) && b.Compatible(rb) {
					return false
				}
			}
			return true
		},
	}, nil
}

// ExecuteUnion concatenates left and right's solutions, preserving duplicates.
func ExecuteUnion(left, right Stream) Stream {
	return newConcatStream(left, right)
}
