package record

import (
	"math/rand"
	"testing"
)

func TestToTextParseTextRoundTrip(t *testing.T) {
	cases := []Record{
		New([6]int32{1, 2, 3, 4, 5, 6}, 42),
		New([6]int32{0, 0, 0, 0, 0, 0}, 0),
		New([6]int32{-1, -2, -3, -4, -5, -6}, -7),
		New([6]int32{2147483647, 0, 0, 0, 0, 0}, 2147483647),
		New([6]int32{0, 0, 0, 0, 0, 0}, -2147483648),
	}
	for _, want := range cases {
		text := want.ToText()
		got, err := ParseText(text)
		if err != nil {
			t.Fatalf("ParseText(%q): %v", text, err)
		}
		if got != want {
			t.Fatalf("round-trip mismatch: want %+v, got %+v (text %q)", want, got, text)
		}
	}
}

func TestParseTextWrongFieldCount(t *testing.T) {
	if _, err := ParseText("1,2,3"); err == nil {
		t.Fatal("expected error for short record text")
	}
	if _, err := ParseText("1,2,3,4,5,6,7,8"); err == nil {
		t.Fatal("expected error for long record text")
	}
}

func TestParseTextBadField(t *testing.T) {
	if _, err := ParseText("1,2,3,4,5,6,x"); err == nil {
		t.Fatal("expected error for non-numeric field")
	}
}

func TestRandomDistinctKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[int32]bool{}
	for i := 0; i < 50; i++ {
		r := Random(rng)
		seen[r.Key] = true
	}
	if len(seen) < 40 {
		t.Fatalf("expected mostly-distinct random keys, got %d distinct out of 50", len(seen))
	}
}

func TestNewFieldOrder(t *testing.T) {
	r := New([6]int32{10, 20, 30, 40, 50, 60}, 5)
	if r.Key != 5 {
		t.Fatalf("Key = %d, want 5", r.Key)
	}
	if r.Payload != [6]int32{10, 20, 30, 40, 50, 60} {
		t.Fatalf("Payload = %v, want [10 20 30 40 50 60]", r.Payload)
	}
}
