// Package store persists captured minimap crops between the capture and
// processing phases, and writes session outputs.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// ErrStop may be returned from an Iterate callback to end the iteration early
// without an error.
var ErrStop = errors.New("stop iteration")

// FrameStore holds one session's crops keyed by capture sequence number.
type FrameStore interface {
	Persist(seq int, crop gocv.Mat) error
	// Iterate calls fn for every stored crop in ascending sequence order. The
	// Mat is only valid for the duration of the call.
	Iterate(fn func(seq int, crop gocv.Mat) error) error
	Len() int
	Clear() error
}

const framePrefix, frameExt = "frame_", ".png"

// DirStore keeps crops as PNG files in a directory.
type DirStore struct {
	dir  string
	mu   sync.Mutex
	seqs map[int]struct{}
}

// NewDirStore creates dir if needed and picks up frames already in it, so a
// previous session can be replayed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating frame directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	s := &DirStore{dir: dir, seqs: make(map[int]struct{})}
	for _, e := range entries {
		if seq, ok := parseFrameName(e.Name()); ok && !e.IsDir() {
			s.seqs[seq] = struct{}{}
		}
	}
	return s, nil
}

func frameName(seq int) string {
	return fmt.Sprintf("%s%05d%s", framePrefix, seq, frameExt)
}

func parseFrameName(name string) (int, bool) {
	if !strings.HasPrefix(name, framePrefix) || !strings.HasSuffix(name, frameExt) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, framePrefix), frameExt))
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) Persist(seq int, crop gocv.Mat) error {
	path := filepath.Join(s.dir, frameName(seq))
	if !gocv.IMWrite(path, crop) {
		return fmt.Errorf("writing %s", path)
	}

	s.mu.Lock()
	s.seqs[seq] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *DirStore) sorted() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqs := make([]int, 0, len(s.seqs))
	for seq := range s.seqs {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	return seqs
}

func (s *DirStore) Iterate(fn func(seq int, crop gocv.Mat) error) error {
	for _, seq := range s.sorted() {
		path := filepath.Join(s.dir, frameName(seq))
		crop := gocv.IMRead(path, gocv.IMReadColor)
		if crop.Empty() {
			crop.Close()
			return fmt.Errorf("reading %s", path)
		}

		err := fn(seq, crop)
		crop.Close()
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *DirStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seqs)
}

// Clear deletes every stored frame. Other files in the directory are left alone.
func (s *DirStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for seq := range s.seqs {
		if err := os.Remove(filepath.Join(s.dir, frameName(seq))); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		delete(s.seqs, seq)
	}
	return errors.Join(errs...)
}

// MemStore keeps crops in memory. Useful for short sessions and tests.
type MemStore struct {
	mu     sync.Mutex
	frames map[int]gocv.Mat
}

func NewMemStore() *MemStore {
	return &MemStore{frames: make(map[int]gocv.Mat)}
}

func (s *MemStore) Persist(seq int, crop gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.frames[seq]; ok {
		old.Close()
	}
	s.frames[seq] = crop.Clone()
	return nil
}

func (s *MemStore) Iterate(fn func(seq int, crop gocv.Mat) error) error {
	s.mu.Lock()
	seqs := make([]int, 0, len(s.frames))
	for seq := range s.frames {
		seqs = append(seqs, seq)
	}
	s.mu.Unlock()
	sort.Ints(seqs)

	for _, seq := range seqs {
		s.mu.Lock()
		crop, ok := s.frames[seq]
		var view gocv.Mat
		if ok {
			view = crop.Clone()
		}
		s.mu.Unlock()
		if !ok {
			continue
		}

		err := fn(seq, view)
		view.Close()
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for seq, m := range s.frames {
		m.Close()
		delete(s.frames, seq)
	}
	return nil
}
