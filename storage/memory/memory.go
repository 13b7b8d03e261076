// Package memory keeps encoded books in a byte buffer. It is used in tests
// and for catalogs that should not touch the filesystem.
package memory

import (
	"bytes"
	"fmt"
	"iter"
	"sync"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/monitoring"
	"github.com/davidvella/shelf/recordio"
	"github.com/davidvella/shelf/storage"
	"github.com/rs/zerolog"
)

// Storage implements storage.Storage over an in-memory block buffer. Saves
// are all-or-nothing: a book that fails to encode leaves the buffer
// unchanged.
type Storage struct {
	mu           sync.RWMutex
	data         []byte
	lastLoadSize int
	logger       zerolog.Logger
}

type Option func(*Storage)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Storage) {
		s.logger = logger
	}
}

// WithData seeds the buffer with raw block data.
func WithData(data []byte) Option {
	return func(s *Storage) {
		s.data = bytes.Clone(data)
	}
}

func NewMemoryStorage(opts ...Option) *Storage {
	s := &Storage{
		logger: monitoring.NewLogger("storage.memory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Save(books iter.Seq[*book.Book], appendMode bool) error {
	var buf bytes.Buffer
	count := 0
	for b := range books {
		if _, err := recordio.Write(&buf, b); err != nil {
			return fmt.Errorf("failed to encode book %d: %w", count, err)
		}
		count++
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if appendMode {
		s.data = append(s.data, buf.Bytes()...)
	} else {
		s.data = buf.Bytes()
	}

	s.logger.Debug().Int("books", count).Bool("append", appendMode).Msg("saved books")
	return nil
}

// Load iterates over a snapshot of the buffer taken at call time.
func (s *Storage) Load() (storage.Records, error) {
	s.mu.RLock()
	snapshot := bytes.Clone(s.data)
	s.mu.RUnlock()

	whole := recordio.Count(int64(len(snapshot))) * recordio.BlockSize
	if extra := len(snapshot) - whole; extra > 0 {
		s.logger.Warn().Int("bytes", extra).Msg("ignoring trailing partial block")
	}

	return storage.NewCursor(recordio.Seq(bytes.NewReader(snapshot[:whole])), nil, s.SetLastLoadSize), nil
}

// Bytes returns a copy of the stored blocks.
func (s *Storage) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.data)
}

func (s *Storage) LastLoadSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLoadSize
}

func (s *Storage) SetLastLoadSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLoadSize = n
}
