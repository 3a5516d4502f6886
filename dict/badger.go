package dict

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/wbrown/sparqlite/rdf"
)

// BadgerDictionary is the persistent Dictionary implementation, storing
// the term<->id mapping in the same BadgerDB instance style as
// store.BadgerStore: two keyspaces (term bytes -> id, id -> term bytes)
// distinguished by a leading tag byte, plus a single counter key for
// minting fresh DictRef ids. It exists so a store.BadgerStore-backed
// deployment doesn't lose its dictionary across restarts the way pairing
// it with MemDictionary would.
type BadgerDictionary struct {
	db *badger.DB

	mu      sync.Mutex
	counter uint64
}

const (
	badgerDictTermToID byte = 'T'
	badgerDictIDToTerm byte = 'I'
	badgerDictCounter  byte = 'C'
)

var badgerDictCounterKey = []byte{badgerDictCounter}

// NewBadgerDictionary opens (creating if absent) a BadgerDB-backed
// dictionary at path. It must not point at the same path as a
// store.BadgerStore: the two keep separate keyspaces by convention, not
// by on-disk namespacing, so sharing a path would corrupt both.
func NewBadgerDictionary(path string) (*BadgerDictionary, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.MemTableSize = 64 << 20
	opts.BlockCacheSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("dict: failed to open badger: %w", err)
	}
	d := &BadgerDictionary{db: db}

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerDictCounterKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			d.counter = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("dict: failed to read counter: %w", err)
	}
	return d, nil
}

// Close releases the underlying BadgerDB handle.
func (d *BadgerDictionary) Close() error { return d.db.Close() }

func (d *BadgerDictionary) LookupID(term rdf.Term) (ID, bool) {
	if id, ok := TryInline(term); ok {
		return id, true
	}
	var id ID
	var found bool
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeTermKey(term))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = ID(binary.BigEndian.Uint64(val))
			found = true
			return nil
		})
	})
	if err != nil {
		return 0, false
	}
	return id, found
}

func (d *BadgerDictionary) LookupTerm(id ID) (rdf.Term, bool) {
	if id.IsInline() {
		return DecodeInlineTerm(id)
	}
	var term rdf.Term
	var found bool
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeIDKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, ok := decodeTermValue(val)
			if !ok {
				return nil
			}
			term, found = t, true
			return nil
		})
	})
	if err != nil {
		return rdf.Term{}, false
	}
	return term, found
}

// GetOrCreateID mints fresh ids under a process-wide mutex: BadgerDB
// transactions alone only guarantee serializability within a single
// txn's keys, and the counter-increment-then-write needs the same
// linearizable check-then-mint guarantee MemDictionary gives via its own
// mutex.
func (d *BadgerDictionary) GetOrCreateID(term rdf.Term) (ID, error) {
	if id, ok := TryInline(term); ok {
		return id, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.LookupID(term); ok {
		return id, nil
	}

	d.counter++
	id := DictRef(d.counter)
	termKey := encodeTermKey(term)
	idKey := encodeIDKey(id)
	idVal := make([]byte, 8)
	binary.BigEndian.PutUint64(idVal, uint64(id))

	err := d.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(termKey, idVal); err != nil {
			return err
		}
		if err := txn.Set(idKey, encodeTermValue(term)); err != nil {
			return err
		}
		counterVal := make([]byte, 8)
		binary.BigEndian.PutUint64(counterVal, d.counter)
		return txn.Set(badgerDictCounterKey, counterVal)
	})
	if err != nil {
		d.counter--
		return 0, fmt.Errorf("dict: failed to mint id: %w", err)
	}
	return id, nil
}

func encodeIDKey(id ID) []byte {
	buf := make([]byte, 9)
	buf[0] = badgerDictIDToTerm
	binary.BigEndian.PutUint64(buf[1:], uint64(id))
	return buf
}

// encodeTermKey renders term as a self-delimiting byte string suitable
// as a Badger key: a kind tag followed by length-prefixed lexical,
// language, and datatype fields, so no field's contents can collide
// across a boundary the way raw NUL-joining could.
func encodeTermKey(term rdf.Term) []byte {
	buf := []byte{badgerDictTermToID, byte(term.Kind())}
	buf = appendLenPrefixed(buf, term.Value())
	buf = appendLenPrefixed(buf, term.Lang())
	buf = appendLenPrefixed(buf, rawDatatype(term))
	return buf
}

func encodeTermValue(term rdf.Term) []byte {
	buf := []byte{byte(term.Kind())}
	buf = appendLenPrefixed(buf, term.Value())
	buf = appendLenPrefixed(buf, term.Lang())
	buf = appendLenPrefixed(buf, rawDatatype(term))
	return buf
}

func decodeTermValue(val []byte) (rdf.Term, bool) {
	if len(val) < 1 {
		return rdf.Term{}, false
	}
	kind := rdf.Kind(val[0])
	rest := val[1:]
	lexical, rest, ok := readLenPrefixed(rest)
	if !ok {
		return rdf.Term{}, false
	}
	lang, rest, ok := readLenPrefixed(rest)
	if !ok {
		return rdf.Term{}, false
	}
	datatype, _, ok := readLenPrefixed(rest)
	if !ok {
		return rdf.Term{}, false
	}

	switch kind {
	case rdf.KindIRI:
		return rdf.IRI(lexical), true
	case rdf.KindBlank:
		return rdf.Blank(lexical), true
	case rdf.KindSimpleLiteral:
		return rdf.SimpleLiteral(lexical), true
	case rdf.KindLangLiteral:
		return rdf.LangLiteral(lexical, lang), true
	case rdf.KindTypedLiteral:
		return rdf.TypedLiteral(lexical, datatype), true
	}
	return rdf.Term{}, false
}

// rawDatatype returns the literal datatype only for explicitly typed
// literals, so simple/lang literals round-trip through Kind alone rather
// than through TypedLiteral's xsd:string normalization.
func rawDatatype(term rdf.Term) string {
	if term.Kind() == rdf.KindTypedLiteral {
		return term.Datatype()
	}
	return ""
}

func appendLenPrefixed(buf []byte, s string) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	buf = append(buf, lenBuf[:n]...)
	return append(buf, s...)
}

func readLenPrefixed(buf []byte) (string, []byte, bool) {
	n, k := binary.Uvarint(buf)
	if k <= 0 || uint64(k)+n > uint64(len(buf)) {
		return "", nil, false
	}
	start := k
	end := k + int(n)
	return string(buf[start:end]), buf[end:], true
}
