package pager

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// FileStore is a Store backed by a regular file, read and written at byte
// offsets id*PageSize. It is the on-disk backend used by cmd/bptree and
// cmd/bptreeload.
type FileStore struct {
	file     *os.File
	pageSize int
	reads    int
	writes   int
}

// OpenFileStore opens (or creates) path as a page-sized-block file.
func OpenFileStore(path string, pageSize int) (*FileStore, error) {
	if !ValidPageSize(pageSize) {
		return nil, fmt.Errorf("pager: invalid page size %d", pageSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open %s: %w", path, err)
	}
	return &FileStore{file: f, pageSize: pageSize}, nil
}

func (s *FileStore) ReadNode(id PageID) (Node, bool, error) {
	buf := make([]byte, s.pageSize)
	off := int64(id) * int64(s.pageSize)
	n, err := s.file.ReadAt(buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, fmt.Errorf("pager: read page %d: %w", id, err)
	}
	s.reads++
	if n < len(buf) {
		// Short read past end of file: page was never written.
		return nil, false, nil
	}
	node, ok := Decode(buf)
	return node, ok, nil
}

func (s *FileStore) WriteNode(id PageID, node Node) error {
	buf, err := Encode(node, id, s.pageSize)
	if err != nil {
		return err
	}
	off := int64(id) * int64(s.pageSize)
	if _, err := s.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("pager: write page %d: %w", id, err)
	}
	s.writes++
	return nil
}

func (s *FileStore) TotalNodes() int {
	info, err := s.file.Stat()
	if err != nil {
		return 0
	}
	return int(info.Size()) / s.pageSize
}

func (s *FileStore) PageSize() int { return s.pageSize }
func (s *FileStore) Reads() int    { return s.reads }
func (s *FileStore) Writes() int   { return s.writes }

// Close releases the underlying file handle.
func (s *FileStore) Close() error {
	return s.file.Close()
}
