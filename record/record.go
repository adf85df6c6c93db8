// Package record defines the fixed-shape tuple stored at every leaf of the
// index: a 32-bit key plus six opaque payload integers.
package record

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Width is the number of int32 components in a Record, including the key.
const Width = 7

// Record is a fixed-width tuple of seven signed 32-bit integers. Key is the
// primary key; Payload is opaque and never participates in ordering.
type Record struct {
	Key     int32
	Payload [6]int32
}

// New builds a Record from a payload and an explicit key, mirroring the
// (payload, key) constructor order of the original source tuple layout.
func New(payload [6]int32, key int32) Record {
	return Record{Key: key, Payload: payload}
}

// Random returns a Record with a random key and payload, for demos and
// tests. It is not part of the tree's public contract.
func Random(rng *rand.Rand) Record {
	var p [6]int32
	for i := range p {
		p[i] = rng.Int31()
	}
	return Record{Key: rng.Int31(), Payload: p}
}

// ToText renders the record as seven comma-separated decimal fields,
// key first.
func (r Record) ToText() string {
	fields := make([]string, 0, Width)
	fields = append(fields, strconv.FormatInt(int64(r.Key), 10))
	for _, v := range r.Payload {
		fields = append(fields, strconv.FormatInt(int64(v), 10))
	}
	return strings.Join(fields, ",")
}

// ParseText parses the textual form produced by ToText: seven
// comma-separated decimal int32 fields, key first.
func ParseText(s string) (Record, error) {
	parts := strings.Split(s, ",")
	if len(parts) != Width {
		return Record{}, fmt.Errorf("record: expected %d comma-separated fields, got %d", Width, len(parts))
	}
	vals := make([]int32, Width)
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("record: field %d (%q): %w", i, p, err)
		}
		vals[i] = int32(n)
	}
	var rec Record
	rec.Key = vals[0]
	copy(rec.Payload[:], vals[1:])
	return rec, nil
}
