package local

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"sync"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/monitoring"
	"github.com/davidvella/shelf/recordio"
	"github.com/davidvella/shelf/storage"
	"github.com/rs/zerolog"
)

// DefaultPath is used when NewLocalStorage is given an empty path.
const DefaultPath = "books.db"

// Storage implements storage.Storage as a flat file of fixed-size blocks.
type Storage struct {
	path   string
	logger zerolog.Logger

	mu           sync.Mutex
	lastLoadSize int
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for save and load events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Storage) {
		s.logger = logger
	}
}

func NewLocalStorage(path string, opts ...Option) *Storage {
	if path == "" {
		path = DefaultPath
	}
	s := &Storage{
		path:   path,
		logger: monitoring.NewLogger("storage.local"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file the storage reads and writes.
func (s *Storage) Path() string {
	return s.path
}

// Save writes one block per book. When appendMode is false the file is
// created or truncated first. A failure part way through leaves the blocks
// already written on disk.
func (s *Storage) Save(books iter.Seq[*book.Book], appendMode bool) (err error) {
	flags := os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	if appendMode {
		flags = os.O_APPEND | os.O_CREATE | os.O_WRONLY
	}

	file, err := os.OpenFile(s.path, flags, 0o600)
	if err != nil {
		return fmt.Errorf("%w: failed to open file %s: %w", storage.ErrIO, s.path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: failed to close file %s: %w", storage.ErrIO, s.path, cerr)
		}
	}()

	count := 0
	for b := range books {
		block, err := recordio.Encode(b)
		if err != nil {
			return fmt.Errorf("failed to encode book %d: %w", count, err)
		}
		if _, err := file.Write(block); err != nil {
			return fmt.Errorf("%w: failed to write book %d to %s: %w", storage.ErrIO, count, s.path, err)
		}
		count++
	}

	s.logger.Debug().
		Str("path", s.path).
		Int("books", count).
		Bool("append", appendMode).
		Msg("saved books")

	return nil
}

// Load opens the file and returns its whole blocks in order. Trailing bytes
// that do not form a complete block are ignored.
func (s *Storage) Load() (storage.Records, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file %s: %w", storage.ErrIO, s.path, err)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("%w: failed to stat file %s: %w", storage.ErrIO, s.path, err),
			file.Close(),
		)
	}

	count := recordio.Count(info.Size())
	if extra := info.Size() - int64(count)*recordio.BlockSize; extra > 0 {
		s.logger.Warn().
			Str("path", s.path).
			Int64("bytes", extra).
			Msg("ignoring trailing partial block")
	}

	r := io.LimitReader(file, int64(count)*recordio.BlockSize)
	return storage.NewCursor(storage.WrapIO(recordio.Seq(r)), file, s.SetLastLoadSize), nil
}

func (s *Storage) LastLoadSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLoadSize
}

func (s *Storage) SetLastLoadSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLoadSize = n
}
