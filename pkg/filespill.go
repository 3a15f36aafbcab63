// Package pkg holds reusable helpers that are independent of the fuzzer domain.
package pkg

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrSpillClosed is returned by operations on a closed spill.
var ErrSpillClosed = errors.New("spill closed")

// FileSpill is an append-only list of T kept on disk so long campaigns do
// not hold every record in memory.
//
// Items are stored as frames: a uvarint length followed by a self-contained
// gob encoding. Frames decode independently, which keeps Get a single read.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Get(index uint64) (T, error)
	Range(fn func(index uint64, item T) error) error
	Close() error
}

type frameSpill[T any] struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	w       *bufio.Writer
	offsets []int64
	size    int64
	closed  bool
}

// DefaultSpillDir is used when NewFileSpill is given a blank directory.
var DefaultSpillDir = filepath.Join(os.TempDir(), "jitfuzz-spill")

// NewFileSpill creates a spill file for items of type T inside dir.
func NewFileSpill[T any](dir string) (FileSpill[T], error) {
	if dir == "" {
		dir = DefaultSpillDir
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create spill directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "spill-*.gob")
	if err != nil {
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}

	slog.Debug("Created spill", "path", file.Name())

	return &frameSpill[T]{
		path: file.Name(),
		file: file,
		w:    bufio.NewWriter(file),
	}, nil
}

func (s *frameSpill[T]) Path() string { return s.path }

func (s *frameSpill[T]) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.offsets))
}

func (s *frameSpill[T]) Append(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(item)
}

// AppendBatch appends items in order. Items before a failing one stay
// appended.
func (s *frameSpill[T]) AppendBatch(items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range items {
		if err := s.appendLocked(item); err != nil {
			return fmt.Errorf("item %d of batch: %w", i, err)
		}
	}

	return nil
}

func (s *frameSpill[T]) appendLocked(item T) error {
	if s.closed {
		return ErrSpillClosed
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(item); err != nil {
		return fmt.Errorf("failed to encode item %d: %w", len(s.offsets), err)
	}

	var header [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(header[:], uint64(payload.Len()))

	if _, err := s.w.Write(header[:n]); err != nil {
		return fmt.Errorf("failed to write item %d: %w", len(s.offsets), err)
	}

	if _, err := s.w.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("failed to write item %d: %w", len(s.offsets), err)
	}

	s.offsets = append(s.offsets, s.size)
	s.size += int64(n + payload.Len())

	return nil
}

func (s *frameSpill[T]) Get(index uint64) (T, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return zero, ErrSpillClosed
	}

	if index >= uint64(len(s.offsets)) {
		return zero, fmt.Errorf("index %d out of bounds (length %d)", index, len(s.offsets))
	}

	if err := s.w.Flush(); err != nil {
		return zero, fmt.Errorf("failed to flush spill: %w", err)
	}

	end := s.size
	if index+1 < uint64(len(s.offsets)) {
		end = s.offsets[index+1]
	}

	section := io.NewSectionReader(s.file, s.offsets[index], end-s.offsets[index])

	item, err := readFrame[T](bufio.NewReader(section))
	if err != nil {
		return zero, fmt.Errorf("failed to decode item %d: %w", index, err)
	}

	return item, nil
}

// Range calls fn for every item in append order and stops at the first
// error fn returns.
func (s *frameSpill[T]) Range(fn func(index uint64, item T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSpillClosed
	}

	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush spill: %w", err)
	}

	r := bufio.NewReader(io.NewSectionReader(s.file, 0, s.size))

	for i := range uint64(len(s.offsets)) {
		item, err := readFrame[T](r)
		if err != nil {
			return fmt.Errorf("failed to decode item %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close flushes pending frames and closes the file. The file itself stays
// on disk; its directory owner removes it.
func (s *frameSpill[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	flushErr := s.w.Flush()
	closeErr := s.file.Close()

	slog.Debug("Closed spill", "path", s.path, "items", len(s.offsets))

	return errors.Join(flushErr, closeErr)
}

func readFrame[T any](r *bufio.Reader) (T, error) {
	var item T

	size, err := binary.ReadUvarint(r)
	if err != nil {
		return item, err
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return item, err
	}

	err = gob.NewDecoder(bytes.NewReader(payload)).Decode(&item)

	return item, err
}
