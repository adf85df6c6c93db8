package pager

import (
	"encoding/binary"

	"bptreedb/record"
)

// Node is the tagged union of page contents: exactly one of HeaderNode,
// LeafNode, InternalNode. No tree logic lives here; only shape and
// encode/decode.
type Node interface {
	isNode()
}

// HeaderNode is the distinguished page-0 contents: the current root page.
type HeaderNode struct {
	RootPage PageID
}

// LeafNode holds ordered (key, record) pairs and a forward link to the
// leaf whose minimum key is this leaf's successor (PageID 0 if none).
type LeafNode struct {
	Keys   []int32
	Values []record.Record
	Next   PageID
}

// InternalNode holds ordered separator keys and len(Keys)+1 routing
// children.
type InternalNode struct {
	Keys     []int32
	Children []PageID
}

func (HeaderNode) isNode()   {}
func (LeafNode) isNode()     {}
func (InternalNode) isNode() {}

// NewEmptyLeaf returns a leaf with no entries and no successor.
func NewEmptyLeaf() LeafNode {
	return LeafNode{}
}

// NewEmptyInternal returns an internal node with no keys and a single child
// slot holding page 0 (the "no child" sentinel), so that
// len(Children) == len(Keys)+1 holds.
func NewEmptyInternal() InternalNode {
	return InternalNode{Keys: []int32{}, Children: []PageID{0}}
}

const recordSize = record.Width * 4 // 7 int32 fields

// Encode writes n's tagged encoding into a page-sized buffer and returns it.
// It returns ErrPageOverflow if the encoding would not fit in pageSize
// bytes.
func Encode(n Node, id PageID, pageSize int) ([]byte, error) {
	buf := make([]byte, pageSize)

	switch v := n.(type) {
	case HeaderNode:
		need := headerSize + 4
		if need > pageSize {
			return nil, ErrPageOverflow
		}
		buf[0] = byte(tagHeader)
		binary.LittleEndian.PutUint32(buf[headerSize:headerSize+4], uint32(v.RootPage))

	case LeafNode:
		need := headerSize + 2 + 4 + len(v.Keys)*4 + len(v.Values)*recordSize
		if need > pageSize {
			return nil, ErrPageOverflow
		}
		buf[0] = byte(tagLeaf)
		off := headerSize
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(v.Keys)))
		off += 2
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v.Next))
		off += 4
		for _, k := range v.Keys {
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(k))
			off += 4
		}
		for _, rec := range v.Values {
			putRecord(buf[off:off+recordSize], rec)
			off += recordSize
		}

	case InternalNode:
		need := headerSize + 2 + 2 + len(v.Keys)*4 + len(v.Children)*4
		if need > pageSize {
			return nil, ErrPageOverflow
		}
		buf[0] = byte(tagInternal)
		off := headerSize
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(v.Keys)))
		off += 2
		off += 2 // reserved, keeps 4-byte alignment for the arrays that follow
		for _, k := range v.Keys {
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(k))
			off += 4
		}
		for _, c := range v.Children {
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(c))
			off += 4
		}

	default:
		return nil, ErrPageOverflow
	}

	binary.LittleEndian.PutUint32(buf[4:8], uint32(id))
	setCRC(buf)
	return buf, nil
}

// Decode attempts to interpret buf as a Node. It returns (nil, false) for an
// all-zero page, a page whose CRC does not verify, or any other buffer that
// does not describe a legal Node — "garbage decodes to empty" per the
// storage contract.
func Decode(buf []byte) (Node, bool) {
	if len(buf) < headerSize {
		return nil, false
	}
	if !verifyCRC(buf) {
		return nil, false
	}

	switch tag(buf[0]) {
	case tagHeader:
		if len(buf) < headerSize+4 {
			return nil, false
		}
		root := PageID(binary.LittleEndian.Uint32(buf[headerSize : headerSize+4]))
		return HeaderNode{RootPage: root}, true

	case tagLeaf:
		off := headerSize
		if len(buf) < off+6 {
			return nil, false
		}
		count := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		next := PageID(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		need := off + count*4 + count*recordSize
		if need > len(buf) {
			return nil, false
		}
		keys := make([]int32, count)
		for i := 0; i < count; i++ {
			keys[i] = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
			off += 4
		}
		values := make([]record.Record, count)
		for i := 0; i < count; i++ {
			values[i] = getRecord(buf[off : off+recordSize])
			off += recordSize
		}
		return LeafNode{Keys: keys, Values: values, Next: next}, true

	case tagInternal:
		off := headerSize
		if len(buf) < off+4 {
			return nil, false
		}
		count := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 4 // skip count + reserved
		need := off + count*4 + (count+1)*4
		if need > len(buf) {
			return nil, false
		}
		keys := make([]int32, count)
		for i := 0; i < count; i++ {
			keys[i] = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
			off += 4
		}
		children := make([]PageID, count+1)
		for i := range children {
			children[i] = PageID(binary.LittleEndian.Uint32(buf[off : off+4]))
			off += 4
		}
		return InternalNode{Keys: keys, Children: children}, true

	default:
		return nil, false
	}
}

func putRecord(b []byte, r record.Record) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(r.Key))
	for i, v := range r.Payload {
		off := 4 + i*4
		binary.LittleEndian.PutUint32(b[off:off+4], uint32(v))
	}
}

func getRecord(b []byte) record.Record {
	var r record.Record
	r.Key = int32(binary.LittleEndian.Uint32(b[0:4]))
	for i := range r.Payload {
		off := 4 + i*4
		r.Payload[i] = int32(binary.LittleEndian.Uint32(b[off : off+4]))
	}
	return r
}

// MaxLeafKeys returns how many (key, record) pairs fit in one leaf page of
// the given size, the bound a caller should respect when choosing a
// branching factor B.
func MaxLeafKeys(pageSize int) int {
	avail := pageSize - headerSize - 2 - 4
	if avail <= 0 {
		return 0
	}
	return avail / (4 + recordSize)
}

// MaxInternalKeys returns how many separator keys fit in one internal page
// of the given size (with len(keys)+1 children).
func MaxInternalKeys(pageSize int) int {
	avail := pageSize - headerSize - 4 - 4 // count+reserved, one child slot
	if avail <= 0 {
		return 0
	}
	return avail / 8 // each extra key costs 4 bytes key + 4 bytes child
}
