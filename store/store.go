// Package store implements the ordered key-value triple store the
// query engine runs against: three covering indices (SPO, POS, OSP)
// over dictionary-id triples, atomic batch writes, prefix iteration,
// and snapshot isolation for reads.
package store

import (
	"encoding/binary"

	"github.com/wbrown/sparqlite/dict"
)

// Index names the three covering orders every triple is written under.
type Index uint8

const (
	// SPO orders by subject, then predicate, then object.
	SPO Index = iota
	// POS orders by predicate, then object, then subject.
	POS
	// OSP orders by object, then subject, then predicate.
	OSP
)

func (idx Index) String() string {
	switch idx {
	case SPO:
		return "SPO"
	case POS:
		return "POS"
	case OSP:
		return "OSP"
	}
	return "?"
}

// Triple is a ground triple of dictionary/inline ids, the unit the store
// persists. Term decoding happens one layer up, in the executor.
type Triple struct {
	S, P, O dict.ID
}

// Pattern is a triple pattern over ids: a nil pointer marks an unbound
// position, a non-nil pointer pins that position to a concrete id.
type Pattern struct {
	S, P, O *dict.ID
}

// BoundCount returns how many of the pattern's three positions are bound,
// which the cost model uses to classify scan type (point/prefix/full).
func (p Pattern) BoundCount() int {
	n := 0
	if p.S != nil {
		n++
	}
	if p.P != nil {
		n++
	}
	if p.O != nil {
		n++
	}
	return n
}

// BestIndex picks the covering index whose prefix is most fully
// satisfied by p's bound positions, preferring SPO, then POS, then OSP
// on ties so selection is deterministic.
func (p Pattern) BestIndex() Index {
	switch {
	case p.S != nil && p.P != nil:
		return SPO
	case p.P != nil && p.O != nil:
		return POS
	case p.O != nil && p.S != nil:
		return OSP
	case p.S != nil:
		return SPO
	case p.P != nil:
		return POS
	case p.O != nil:
		return OSP
	default:
		return SPO
	}
}

// KeyRange returns the [start, end) byte range that Index.Encode should
// be scanned over to satisfy pattern under idx: a prefix built from
// however many of idx's leading positions are bound in order.
func KeyRange(idx Index, p Pattern) (start, end []byte) {
	prefix := encodePrefix(idx, p)
	start = append([]byte{}, prefix...)
	end = prefixUpperBound(prefix)
	return start, end
}

// encodePrefix serializes the contiguous run of bound leading positions
// of p in idx's order. A gap (e.g. O bound but S unbound under SPO)
// simply stops the prefix early; the matcher re-checks all three
// positions against the decoded key regardless.
func encodePrefix(idx Index, p Pattern) []byte {
	order := positionOrder(idx)
	buf := []byte{byte(idx)}
	for _, pos := range order {
		id := pos(p)
		if id == nil {
			break
		}
		buf = appendID(buf, *id)
	}
	return buf
}

func positionOrder(idx Index) []func(Pattern) *dict.ID {
	s := func(p Pattern) *dict.ID { return p.S }
	pr := func(p Pattern) *dict.ID { return p.P }
	o := func(p Pattern) *dict.ID { return p.O }
	switch idx {
	case SPO:
		return []func(Pattern) *dict.ID{s, pr, o}
	case POS:
		return []func(Pattern) *dict.ID{pr, o, s}
	case OSP:
		return []func(Pattern) *dict.ID{o, s, pr}
	}
	return nil
}

func appendID(buf []byte, id dict.ID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return append(buf, b[:]...)
}

// prefixUpperBound returns the smallest byte string greater than every
// string with the given prefix, used as an exclusive scan bound.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil // all 0xff: unbounded above
}

// EncodeKey builds the full key for a ground triple under idx.
func EncodeKey(idx Index, t Triple) []byte {
	switch idx {
	case SPO:
		return appendID(appendID(appendID([]byte{byte(idx)}, t.S), t.P), t.O)
	case POS:
		return appendID(appendID(appendID([]byte{byte(idx)}, t.P), t.O), t.S)
	case OSP:
		return appendID(appendID(appendID([]byte{byte(idx)}, t.O), t.S), t.P)
	}
	return nil
}

// DecodeKey reconstructs the triple and index encoded in key.
func DecodeKey(key []byte) (Index, Triple, bool) {
	if len(key) != 25 {
		return 0, Triple{}, false
	}
	idx := Index(key[0])
	a := dict.ID(binary.BigEndian.Uint64(key[1:9]))
	b := dict.ID(binary.BigEndian.Uint64(key[9:17]))
	c := dict.ID(binary.BigEndian.Uint64(key[17:25]))
	switch idx {
	case SPO:
		return idx, Triple{S: a, P: b, O: c}, true
	case POS:
		return idx, Triple{S: c, P: a, O: b}, true
	case OSP:
		return idx, Triple{S: b, P: c, O: a}, true
	}
	return 0, Triple{}, false
}

// EncodeTripleKeys returns the (index, key) pairs a triple must be
// written to/removed from across all three covering indices, the
// building block write_batch/delete_batch operate on.
func EncodeTripleKeys(t Triple) [3]struct {
	Index Index
	Key   []byte
} {
	return [3]struct {
		Index Index
		Key   []byte
	}{
		{SPO, EncodeKey(SPO, t)},
		{POS, EncodeKey(POS, t)},
		{OSP, EncodeKey(OSP, t)},
	}
}
