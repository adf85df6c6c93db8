// Package btree implements the B+-tree engine: descent with path capture,
// leaf insertion and update, optional leaf compensation, leaf/internal
// split, and root growth. It owns exactly one pager.Store and never
// bypasses it.
package btree

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"bptreedb/internal/pager"
	"bptreedb/record"
)

// ErrMalformedHeader is returned by Open when the store already has
// content but page 0 does not decode as a Header. This is fatal: the tree
// refuses to open.
var ErrMalformedHeader = errors.New("btree: page 0 does not decode as a Header")

// ErrCorruptNode is returned when descent or leaf access finds a Header
// where a Leaf or Internal node was expected, or a page fails to decode at
// all where a live node was required. It indicates corruption.
var ErrCorruptNode = errors.New("btree: expected Leaf or Internal node")

// Tree is a persistent B+-tree index keyed by int32. A Tree is not
// thread-safe and owns its Store exclusively; no locking is performed or
// required, per the single-threaded resource model.
type Tree struct {
	store     pager.Store
	branching int
	root      pager.PageID
}

// Open opens store as a B+-tree index with the given branching factor B.
// If the store is empty (TotalNodes() == 0) it is initialized: page 0
// becomes a Header pointing at page 1, and page 1 becomes an empty Leaf
// root. Otherwise page 0 is read and must decode as a Header; any other
// outcome is ErrMalformedHeader.
func Open(store pager.Store, branching int) (*Tree, error) {
	if branching < 1 {
		return nil, fmt.Errorf("btree: branching factor must be >= 1, got %d", branching)
	}

	if store.TotalNodes() == 0 {
		if err := store.WriteNode(0, pager.HeaderNode{RootPage: 1}); err != nil {
			return nil, err
		}
		if err := store.WriteNode(1, pager.NewEmptyLeaf()); err != nil {
			return nil, err
		}
		return &Tree{store: store, branching: branching, root: 1}, nil
	}

	node, ok, err := store.ReadNode(0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMalformedHeader
	}
	header, ok := node.(pager.HeaderNode)
	if !ok {
		return nil, ErrMalformedHeader
	}
	return &Tree{store: store, branching: branching, root: header.RootPage}, nil
}

// Branching returns the tree's branching factor B.
func (t *Tree) Branching() int { return t.branching }

// Store returns the underlying page store, mainly for diagnostics.
func (t *Tree) Store() pager.Store { return t.store }

// pathEntry is one captured ancestor: the page it lives on and the
// Internal node snapshot read during descent. Recorded top-down so upward
// propagation after a split can rewrite ancestors without re-descending.
type pathEntry struct {
	page pager.PageID
	node pager.InternalNode
}

// routeIndex computes the smallest i with key < keys[i], or len(keys) if
// none — the routing index used at every internal node.
func routeIndex(keys []int32, key int32) int {
	return sort.Search(len(keys), func(i int) bool { return key < keys[i] })
}

// descendToLeaf walks from the root to the leaf that would contain key,
// capturing the path of internal ancestors visited along the way.
func (t *Tree) descendToLeaf(key int32) (pager.PageID, []pathEntry, error) {
	var path []pathEntry
	id := t.root
	for {
		node, ok, err := t.store.ReadNode(id)
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			return 0, nil, fmt.Errorf("btree: page %d is empty during descent: %w", id, ErrCorruptNode)
		}
		switch n := node.(type) {
		case pager.LeafNode:
			return id, path, nil
		case pager.InternalNode:
			path = append(path, pathEntry{page: id, node: n})
			id = n.Children[routeIndex(n.Keys, key)]
		default:
			return 0, nil, fmt.Errorf("btree: page %d: %w", id, ErrCorruptNode)
		}
	}
}

// Find returns the record whose key equals key, or (zero, false) if no
// such record exists. It is side-effect free at the logical level (it may
// advance the store's read counter).
func (t *Tree) Find(key int32) (record.Record, bool, error) {
	leafID, _, err := t.descendToLeaf(key)
	if err != nil {
		return record.Record{}, false, err
	}
	leaf, err := t.readLeaf(leafID)
	if err != nil {
		return record.Record{}, false, err
	}
	i := sort.Search(len(leaf.Keys), func(i int) bool { return leaf.Keys[i] >= key })
	if i < len(leaf.Keys) && leaf.Keys[i] == key {
		return leaf.Values[i], true, nil
	}
	return record.Record{}, false, nil
}

func (t *Tree) readLeaf(id pager.PageID) (pager.LeafNode, error) {
	node, ok, err := t.store.ReadNode(id)
	if err != nil {
		return pager.LeafNode{}, err
	}
	if !ok {
		return pager.LeafNode{}, fmt.Errorf("btree: page %d is empty, want Leaf: %w", id, ErrCorruptNode)
	}
	leaf, ok := node.(pager.LeafNode)
	if !ok {
		return pager.LeafNode{}, fmt.Errorf("btree: page %d: %w", id, ErrCorruptNode)
	}
	return leaf, nil
}

func (t *Tree) readInternal(id pager.PageID) (pager.InternalNode, error) {
	node, ok, err := t.store.ReadNode(id)
	if err != nil {
		return pager.InternalNode{}, err
	}
	if !ok {
		return pager.InternalNode{}, fmt.Errorf("btree: page %d is empty, want Internal: %w", id, ErrCorruptNode)
	}
	internal, ok := node.(pager.InternalNode)
	if !ok {
		return pager.InternalNode{}, fmt.Errorf("btree: page %d: %w", id, ErrCorruptNode)
	}
	return internal, nil
}

// Insert adds record, or replaces the existing record at the same key in
// place (tree shape unchanged). Inserting the same record twice is
// equivalent to inserting it once.
func (t *Tree) Insert(rec record.Record) error {
	key := rec.Key
	leafID, path, err := t.descendToLeaf(key)
	if err != nil {
		return err
	}
	leaf, err := t.readLeaf(leafID)
	if err != nil {
		return err
	}

	i := sort.Search(len(leaf.Keys), func(i int) bool { return leaf.Keys[i] >= key })
	if i < len(leaf.Keys) && leaf.Keys[i] == key {
		leaf.Values[i] = rec
		return t.store.WriteNode(leafID, leaf)
	}

	leaf.Keys = insertInt32(leaf.Keys, i, key)
	leaf.Values = insertRecord(leaf.Values, i, rec)

	if len(leaf.Keys) <= t.branching {
		return t.store.WriteNode(leafID, leaf)
	}
	return t.handleLeafOverflow(leafID, leaf, path)
}

func insertInt32(s []int32, i int, v int32) []int32 {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertRecord(s []record.Record, i int, v record.Record) []record.Record {
	s = append(s, record.Record{})
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertPageID(s []pager.PageID, i int, v pager.PageID) []pager.PageID {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// handleLeafOverflow is reached when a leaf holds B+1 entries after an
// insertion. It first tries compensation (redistribution with a sibling
// that has free capacity); if that is not possible it splits.
func (t *Tree) handleLeafOverflow(leafID pager.PageID, leaf pager.LeafNode, path []pathEntry) error {
	if len(path) > 0 {
		compensated, err := t.tryCompensate(leafID, leaf, path[len(path)-1])
		if err != nil {
			return err
		}
		if compensated {
			return nil
		}
	}
	return t.splitLeaf(leafID, leaf, path)
}

// tryCompensate attempts to move entries into a sibling with free
// capacity instead of splitting. The root leaf (no parent) can never
// compensate.
func (t *Tree) tryCompensate(leafID pager.PageID, leaf pager.LeafNode, parentEntry pathEntry) (bool, error) {
	parent := parentEntry.node
	p := -1
	for idx, c := range parent.Children {
		if c == leafID {
			p = idx
			break
		}
	}
	if p < 0 {
		return false, fmt.Errorf("btree: leaf %d not found among parent %d's children: %w", leafID, parentEntry.page, ErrCorruptNode)
	}

	if p-1 >= 0 {
		siblingID := parent.Children[p-1]
		node, ok, err := t.store.ReadNode(siblingID)
		if err != nil {
			return false, err
		}
		if ok {
			if sibling, isLeaf := node.(pager.LeafNode); isLeaf && len(sibling.Keys) < t.branching {
				return true, t.redistributeLeaves(parentEntry.page, parent, siblingID, sibling, leafID, leaf)
			}
		}
	}
	if p+1 < len(parent.Children) {
		siblingID := parent.Children[p+1]
		node, ok, err := t.store.ReadNode(siblingID)
		if err != nil {
			return false, err
		}
		if ok {
			if sibling, isLeaf := node.(pager.LeafNode); isLeaf && len(sibling.Keys) < t.branching {
				return true, t.redistributeLeaves(parentEntry.page, parent, leafID, leaf, siblingID, sibling)
			}
		}
	}
	return false, nil
}

// redistributeLeaves merges leftLeaf's and rightLeaf's entries (one of the
// two already holds the freshly inserted, overflowing entry), splits the
// combined set evenly, and rewrites both leaves plus the separator slot in
// the parent — the slot whose left child is leftID, per the design
// decision to identify the separator by position in the parent rather than
// by any key-based heuristic.
func (t *Tree) redistributeLeaves(parentID pager.PageID, parent pager.InternalNode, leftID pager.PageID, leftLeaf pager.LeafNode, rightID pager.PageID, rightLeaf pager.LeafNode) error {
	n := len(leftLeaf.Keys) + len(rightLeaf.Keys)
	keys := make([]int32, 0, n)
	vals := make([]record.Record, 0, n)
	keys = append(keys, leftLeaf.Keys...)
	vals = append(vals, leftLeaf.Values...)
	keys = append(keys, rightLeaf.Keys...)
	vals = append(vals, rightLeaf.Values...)
	sortEntries(keys, vals)

	mid := n / 2
	leftLeaf.Keys = append([]int32(nil), keys[:mid]...)
	leftLeaf.Values = append([]record.Record(nil), vals[:mid]...)
	rightLeaf.Keys = append([]int32(nil), keys[mid:]...)
	rightLeaf.Values = append([]record.Record(nil), vals[mid:]...)
	separator := rightLeaf.Keys[0]

	sepIdx := -1
	for i := 0; i+1 < len(parent.Children); i++ {
		if parent.Children[i] == leftID && parent.Children[i+1] == rightID {
			sepIdx = i
			break
		}
	}
	if sepIdx < 0 {
		return fmt.Errorf("btree: siblings %d,%d not adjacent in parent %d: %w", leftID, rightID, parentID, ErrCorruptNode)
	}
	parent.Keys[sepIdx] = separator

	if err := t.store.WriteNode(leftID, leftLeaf); err != nil {
		return err
	}
	if err := t.store.WriteNode(rightID, rightLeaf); err != nil {
		return err
	}
	return t.store.WriteNode(parentID, parent)
}

func sortEntries(keys []int32, vals []record.Record) {
	sort.Sort(&entrySorter{keys: keys, vals: vals})
}

type entrySorter struct {
	keys []int32
	vals []record.Record
}

func (s *entrySorter) Len() int           { return len(s.keys) }
func (s *entrySorter) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s *entrySorter) Swap(i, j int) {
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
	s.vals[i], s.vals[j] = s.vals[j], s.vals[i]
}

// splitLeaf splits an overflowing leaf of B+1 entries in two. The
// separator promoted to the parent is a copy of the right half's first
// key; the key also remains in the right leaf (leaf split copies up).
func (t *Tree) splitLeaf(leafID pager.PageID, leaf pager.LeafNode, path []pathEntry) error {
	n := len(leaf.Keys)
	mid := (n + 1) / 2 // ceil(n/2)

	rightID := pager.PageID(t.store.TotalNodes())
	oldNext := leaf.Next

	left := pager.LeafNode{
		Keys:   append([]int32(nil), leaf.Keys[:mid]...),
		Values: append([]record.Record(nil), leaf.Values[:mid]...),
		Next:   rightID,
	}
	right := pager.LeafNode{
		Keys:   append([]int32(nil), leaf.Keys[mid:]...),
		Values: append([]record.Record(nil), leaf.Values[mid:]...),
		Next:   oldNext,
	}
	separator := right.Keys[0]

	if err := t.store.WriteNode(leafID, left); err != nil {
		return err
	}
	if err := t.store.WriteNode(rightID, right); err != nil {
		return err
	}
	return t.insertIntoParent(path, leafID, separator, rightID)
}

// splitInternal splits an overflowing internal node of B+1 keys. The
// middle key is removed and promoted to the parent (push-up — it does not
// remain in either child).
func (t *Tree) splitInternal(nodeID pager.PageID, node pager.InternalNode, path []pathEntry) error {
	n := len(node.Keys)
	mid := n / 2 // floor(n/2)

	promoted := node.Keys[mid]
	rightID := pager.PageID(t.store.TotalNodes())

	left := pager.InternalNode{
		Keys:     append([]int32(nil), node.Keys[:mid]...),
		Children: append([]pager.PageID(nil), node.Children[:mid+1]...),
	}
	right := pager.InternalNode{
		Keys:     append([]int32(nil), node.Keys[mid+1:]...),
		Children: append([]pager.PageID(nil), node.Children[mid+1:]...),
	}

	if err := t.store.WriteNode(nodeID, left); err != nil {
		return err
	}
	if err := t.store.WriteNode(rightID, right); err != nil {
		return err
	}
	return t.insertIntoParent(path, nodeID, promoted, rightID)
}

// insertIntoParent inserts the promoted key and new right child into the
// parent captured on path, or grows the root if path is empty. It pops one
// level of the path stack per call, consuming it top-down.
func (t *Tree) insertIntoParent(path []pathEntry, leftID pager.PageID, key int32, rightID pager.PageID) error {
	if len(path) == 0 {
		return t.growRoot(leftID, key, rightID)
	}

	entry := path[len(path)-1]
	parent := entry.node

	p := -1
	for idx, c := range parent.Children {
		if c == leftID {
			p = idx
			break
		}
	}
	if p < 0 {
		return fmt.Errorf("btree: child %d not found in parent %d: %w", leftID, entry.page, ErrCorruptNode)
	}

	parent.Keys = insertInt32(parent.Keys, p, key)
	parent.Children = insertPageID(parent.Children, p+1, rightID)

	if len(parent.Keys) <= t.branching {
		return t.store.WriteNode(entry.page, parent)
	}
	return t.splitInternal(entry.page, parent, path[:len(path)-1])
}

// growRoot allocates a new Internal root with a single key and two
// children, the new page becomes the root, and the header is rewritten.
// Height grows by exactly one.
func (t *Tree) growRoot(leftID pager.PageID, key int32, rightID pager.PageID) error {
	newRootID := pager.PageID(t.store.TotalNodes())
	newRoot := pager.InternalNode{Keys: []int32{key}, Children: []pager.PageID{leftID, rightID}}
	if err := t.store.WriteNode(newRootID, newRoot); err != nil {
		return err
	}
	if err := t.store.WriteNode(0, pager.HeaderNode{RootPage: newRootID}); err != nil {
		return err
	}
	t.root = newRootID
	return nil
}

// All walks the leaf chain from the leftmost leaf and returns every record
// in ascending key order — the user-visible form of the leaf chain
// invariant. It is not part of the tree's core contract (spec.md excludes
// range iteration as a public operation) but backs diagnostics and tests.
func (t *Tree) All() ([]record.Record, error) {
	id := t.root
	for {
		node, ok, err := t.store.ReadNode(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("btree: page %d is empty while descending to leftmost leaf: %w", id, ErrCorruptNode)
		}
		switch n := node.(type) {
		case pager.LeafNode:
			var out []record.Record
			for id != 0 {
				leaf, err := t.readLeaf(id)
				if err != nil {
					return nil, err
				}
				out = append(out, leaf.Values...)
				id = leaf.Next
			}
			return out, nil
		case pager.InternalNode:
			id = n.Children[0]
		default:
			return nil, fmt.Errorf("btree: page %d: %w", id, ErrCorruptNode)
		}
	}
}

// DebugDump writes a human-readable listing of every page's tag, keys, and
// routing/chain pointers, in page order.
func (t *Tree) DebugDump(w io.Writer) error {
	total := t.store.TotalNodes()
	for id := 0; id < total; id++ {
		node, ok, err := t.store.ReadNode(pager.PageID(id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(w, "page %d: <empty>\n", id)
			continue
		}
		switch n := node.(type) {
		case pager.HeaderNode:
			fmt.Fprintf(w, "page %d: Header root=%d\n", id, n.RootPage)
		case pager.LeafNode:
			fmt.Fprintf(w, "page %d: Leaf keys=%v next=%d\n", id, n.Keys, n.Next)
		case pager.InternalNode:
			fmt.Fprintf(w, "page %d: Internal keys=%v children=%v\n", id, n.Keys, n.Children)
		}
	}
	return nil
}
