package store

// Store is the ordered key-value backend the core consumes. Every
// insert writes to SPO, POS, and OSP atomically; every delete removes
// from all three atomically, so the indices always hold the same
// triple set.
type Store interface {
	// InsertTriples writes triples to all three covering indices in a
	// single atomic batch.
	InsertTriples(triples []Triple) error

	// DeleteTriples removes triples from all three covering indices in a
	// single atomic batch. Deleting an absent triple is a no-op.
	DeleteTriples(triples []Triple) error

	// WriteBatch applies deletes then inserts across all three covering
	// indices as one atomic batch: either every operation lands or none
	// does. A single update operation that both removes and adds triples
	// must go through this rather than paired DeleteTriples/InsertTriples
	// calls, which would leave a partial write if the second call failed.
	WriteBatch(deletes, inserts []Triple) error

	// Lookup returns a lazy stream of triples matching pattern, scanning
	// whichever covering index best fits the pattern's bound positions.
	Lookup(pattern Pattern) (Iterator, error)

	// Snapshot opens a consistent, isolated view of the store for reads:
	// a query begun on snapshot S sees exactly the triples present at S.
	Snapshot() (Snapshot, error)

	// CountPrefix returns the number of keys in idx whose encoded prefix
	// matches pattern's bound leading positions, without fetching values.
	// Statistics uses this for histogram and cardinality bootstrapping.
	CountPrefix(idx Index, pattern Pattern) (int64, error)

	// Close releases the store's underlying resources.
	Close() error
}

// Iterator is a lazy, single-pass, forward cursor over triples. It is
// never restartable by the producer; a consumer needing multiple passes
// must materialize.
type Iterator interface {
	// Next advances to the next matching triple, returning false at end
	// of stream or on error (check Err after Next returns false).
	Next() bool
	// Triple returns the triple at the iterator's current position.
	// Valid only after Next returned true.
	Triple() Triple
	// Err returns the first error encountered, if any.
	Err() error
	// Close releases the iterator's resources. Safe to call from a
	// consumer that stops early: no stream may leak resources on early
	// termination.
	Close() error
}

// Snapshot is a point-in-time, consistent view of the store.
type Snapshot interface {
	// Stream scans idx within the byte range [start, end) as of the
	// snapshot's point in time.
	Stream(idx Index, start, end []byte) (Iterator, error)
	// Close releases the snapshot's resources.
	Close() error
}
