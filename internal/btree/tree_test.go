package btree

import (
	"math"
	"testing"

	"bptreedb/internal/pager"
	"bptreedb/record"
)

func newTestTree(t *testing.T, branching int) *Tree {
	t.Helper()
	store := pager.NewMemoryStore(pager.DefaultPageSize)
	tr, err := Open(store, branching)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return tr
}

func mustFind(t *testing.T, tr *Tree, key int32) record.Record {
	t.Helper()
	rec, ok, err := tr.Find(key)
	if err != nil {
		t.Fatalf("Find(%d): %v", key, err)
	}
	if !ok {
		t.Fatalf("Find(%d): not found", key)
	}
	return rec
}

func mustNotFind(t *testing.T, tr *Tree, key int32) {
	t.Helper()
	_, ok, err := tr.Find(key)
	if err != nil {
		t.Fatalf("Find(%d): %v", key, err)
	}
	if ok {
		t.Fatalf("Find(%d): expected not found", key)
	}
}

func rec(key int32) record.Record {
	return record.New([6]int32{key, key, key, key, key, key}, key)
}

// Scenario 1: fresh tree, insert one key, findability and negatives.
func TestScenarioFreshTreeFind(t *testing.T) {
	tr := newTestTree(t, 5)
	mustNotFind(t, tr, 42)

	if err := tr.Insert(rec(42)); err != nil {
		t.Fatal(err)
	}
	got := mustFind(t, tr, 42)
	if got != rec(42) {
		t.Fatalf("Find(42) = %+v, want %+v", got, rec(42))
	}
	mustNotFind(t, tr, 7)
}

// Scenario 2: update wins.
func TestScenarioUpdateWins(t *testing.T) {
	tr := newTestTree(t, 5)
	first := record.New([6]int32{1, 1, 1, 1, 1, 1}, 1)
	second := record.New([6]int32{9, 9, 9, 9, 9, 9}, 1)

	if err := tr.Insert(first); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(second); err != nil {
		t.Fatal(err)
	}
	got := mustFind(t, tr, 1)
	if got != second {
		t.Fatalf("Find(1) = %+v, want %+v", got, second)
	}
}

// Scenario 3: leaf split with B=4.
func TestScenarioLeafSplit(t *testing.T) {
	tr := newTestTree(t, 4)
	keys := []int32{10, 20, 30, 40, 50}
	for _, k := range keys {
		if err := tr.Insert(rec(k)); err != nil {
			t.Fatal(err)
		}
	}
	for _, k := range keys {
		mustFind(t, tr, k)
	}

	header, ok, err := tr.store.ReadNode(0)
	if err != nil || !ok {
		t.Fatalf("read header: ok=%v err=%v", ok, err)
	}
	h := header.(pager.HeaderNode)
	rootNode, ok, err := tr.store.ReadNode(h.RootPage)
	if err != nil || !ok {
		t.Fatalf("read root: ok=%v err=%v", ok, err)
	}
	root, isInternal := rootNode.(pager.InternalNode)
	if !isInternal {
		t.Fatalf("expected root to be Internal after overflow, got %T", rootNode)
	}
	if len(root.Keys) != 1 {
		t.Fatalf("expected exactly one separator key, got %v", root.Keys)
	}

	all, err := tr.All()
	if err != nil {
		t.Fatal(err)
	}
	assertAscendingKeys(t, all, keys)
}

// Scenario 4: recursive split, sequential insert.
func TestScenarioRecursiveSplitSequential(t *testing.T) {
	tr := newTestTree(t, 4)
	for k := int32(1); k <= 20; k++ {
		if err := tr.Insert(rec(k)); err != nil {
			t.Fatal(err)
		}
	}
	for k := int32(1); k <= 20; k++ {
		mustFind(t, tr, k)
	}
	all, err := tr.All()
	if err != nil {
		t.Fatal(err)
	}
	want := make([]int32, 20)
	for i := range want {
		want[i] = int32(i + 1)
	}
	assertAscendingKeys(t, all, want)
	if depth, err := tr.depth(); err != nil || depth < 2 {
		t.Fatalf("expected height >= 2, got depth=%d err=%v", depth, err)
	}
}

// Scenario 5: reverse-order insert.
func TestScenarioReverseOrderInsert(t *testing.T) {
	tr := newTestTree(t, 4)
	for k := int32(20); k >= 1; k-- {
		if err := tr.Insert(rec(k)); err != nil {
			t.Fatal(err)
		}
	}
	for k := int32(1); k <= 20; k++ {
		mustFind(t, tr, k)
	}
	all, err := tr.All()
	if err != nil {
		t.Fatal(err)
	}
	want := make([]int32, 20)
	for i := range want {
		want[i] = int32(i + 1)
	}
	assertAscendingKeys(t, all, want)
}

// Scenario 6: boundary keys.
func TestScenarioBoundaryKeys(t *testing.T) {
	tr := newTestTree(t, 5)
	min := int32(math.MinInt32)
	max := int32(math.MaxInt32)

	if err := tr.Insert(rec(min)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(rec(max)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(rec(0)); err != nil {
		t.Fatal(err)
	}

	mustFind(t, tr, min)
	mustFind(t, tr, max)
	mustNotFind(t, tr, 5)
}

func TestIdempotentReinsert(t *testing.T) {
	tr := newTestTree(t, 4)
	for k := int32(1); k <= 10; k++ {
		if err := tr.Insert(rec(k)); err != nil {
			t.Fatal(err)
		}
	}
	before, err := tr.All()
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(rec(5)); err != nil {
		t.Fatal(err)
	}
	after, err := tr.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Fatalf("reinsert changed record count: %d vs %d", len(before), len(after))
	}
}

func TestReopenRecoversRoot(t *testing.T) {
	store := pager.NewMemoryStore(pager.DefaultPageSize)
	tr, err := Open(store, 4)
	if err != nil {
		t.Fatal(err)
	}
	for k := int32(1); k <= 20; k++ {
		if err := tr.Insert(rec(k)); err != nil {
			t.Fatal(err)
		}
	}

	reopened, err := Open(store, 4)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	for k := int32(1); k <= 20; k++ {
		mustFind(t, reopened, k)
	}
}

func TestOpenRejectsMalformedHeader(t *testing.T) {
	store := pager.NewMemoryStore(pager.DefaultPageSize)
	if err := store.WriteNode(0, pager.LeafNode{Keys: []int32{1}, Values: []record.Record{rec(1)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(store, 4); err == nil {
		t.Fatal("expected ErrMalformedHeader")
	}
}

func assertAscendingKeys(t *testing.T, got []record.Record, want []int32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("leaf chain length = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Key != w {
			t.Fatalf("leaf chain position %d: key = %d, want %d", i, got[i].Key, w)
		}
		if i > 0 && got[i].Key <= got[i-1].Key {
			t.Fatalf("leaf chain not strictly ascending at position %d", i)
		}
	}
}

// depth walks children[0] from the root to a leaf and counts the levels
// visited (a leaf root has depth 1), for tests that need to observe height
// growth directly.
func (t *Tree) depth() (int, error) {
	id := t.root
	d := 1
	for {
		node, ok, err := t.store.ReadNode(id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrCorruptNode
		}
		internal, isInternal := node.(pager.InternalNode)
		if !isInternal {
			return d, nil
		}
		id = internal.Children[0]
		d++
	}
}

func BenchmarkInsert(b *testing.B) {
	store := pager.NewMemoryStore(pager.DefaultPageSize)
	tr, err := Open(store, 32)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tr.Insert(rec(int32(i))); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFind(b *testing.B) {
	store := pager.NewMemoryStore(pager.DefaultPageSize)
	tr, err := Open(store, 32)
	if err != nil {
		b.Fatal(err)
	}
	const n = 10000
	for i := 0; i < n; i++ {
		if err := tr.Insert(rec(int32(i))); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := tr.Find(int32(i % n)); err != nil {
			b.Fatal(err)
		}
	}
}
