package pager

// Store presents an indexed array of fixed-size pages and encodes/decodes
// Node values to/from those pages. Two backends implement it: FileStore and
// MemoryStore. Neither backend locks; a Store is owned exclusively by the
// single tree that opened it, per the single-threaded resource model.
type Store interface {
	// ReadNode reads the page at id and attempts to decode it. It returns
	// (nil, false, nil) if the page has never been written or does not
	// decode to a legal Node — a garbage or all-zero page is "empty", not
	// an error. A non-nil error indicates an actual I/O failure from the
	// backing medium. Increments the read counter on success or on an
	// "empty" decode; not on I/O failure.
	ReadNode(id PageID) (Node, bool, error)

	// WriteNode encodes node and writes it at id, extending the backing
	// store if id is past the current end. Returns ErrPageOverflow if the
	// encoding does not fit in one page. Increments the write counter.
	WriteNode(id PageID, node Node) error

	// TotalNodes returns the current number of page-sized slots in the
	// backing store.
	TotalNodes() int

	// PageSize returns the fixed page size this store was opened with.
	PageSize() int

	// Reads and Writes report the cumulative read/write counters.
	Reads() int
	Writes() int
}
