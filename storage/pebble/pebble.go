// Package pebble stores books in a Pebble key-value store. Each book is
// kept as its encoded block under a sequence-numbered key, so load order is
// save order.
package pebble

import (
	"encoding/binary"
	"fmt"
	"iter"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/monitoring"
	"github.com/davidvella/shelf/recordio"
	"github.com/davidvella/shelf/storage"
)

var (
	keyPrefix     = []byte("book/")
	keyUpperBound = []byte("book0")
)

// StorageOptions configures the underlying database.
type StorageOptions struct {
	Path         string
	CacheSize    int64
	MaxOpenFiles int
}

// Storage implements storage.Storage using Pebble. Saves are committed as a
// single synced batch.
type Storage struct {
	db     *pebble.DB
	logger zerolog.Logger

	mu           sync.Mutex
	lastLoadSize int
}

type Option func(*Storage)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Storage) {
		s.logger = logger
	}
}

func NewStorage(opts StorageOptions, options ...Option) (*Storage, error) {
	pebbleOpts := &pebble.Options{
		MaxOpenFiles: opts.MaxOpenFiles,
	}
	if opts.CacheSize > 0 {
		cache := pebble.NewCache(opts.CacheSize)
		defer cache.Unref()
		pebbleOpts.Cache = cache
	}

	if err := os.MkdirAll(opts.Path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %w", storage.ErrIO, opts.Path, err)
	}

	db, err := pebble.Open(opts.Path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", storage.ErrIO, opts.Path, err)
	}

	s := &Storage{
		db:     db,
		logger: monitoring.NewLogger("storage.pebble"),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Save(books iter.Seq[*book.Book], appendMode bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	var next uint64
	if appendMode {
		var err error
		if next, err = s.nextSequence(); err != nil {
			return err
		}
	} else if err := batch.DeleteRange(keyPrefix, keyUpperBound, nil); err != nil {
		return fmt.Errorf("%w: failed to clear books: %w", storage.ErrIO, err)
	}

	count := 0
	for b := range books {
		block, err := recordio.Encode(b)
		if err != nil {
			return fmt.Errorf("failed to encode book %d: %w", count, err)
		}
		if err := batch.Set(bookKey(next), block, nil); err != nil {
			return fmt.Errorf("%w: failed to stage book %d: %w", storage.ErrIO, count, err)
		}
		next++
		count++
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("%w: failed to commit books: %w", storage.ErrIO, err)
	}

	s.logger.Debug().Int("books", count).Bool("append", appendMode).Msg("saved books")
	return nil
}

// Load iterates over the books present when it is called.
func (s *Storage) Load() (storage.Records, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: keyUpperBound,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to iterate books: %w", storage.ErrIO, err)
	}

	seq := func(yield func(*book.Book, error) bool) {
		for valid := it.First(); valid; valid = it.Next() {
			b, err := recordio.Decode(it.Value())
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(b, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(nil, fmt.Errorf("%w: %w", storage.ErrIO, err))
		}
	}

	return storage.NewCursor(seq, it, s.SetLastLoadSize), nil
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

// nextSequence returns the sequence number after the last stored book.
func (s *Storage) nextSequence() (seq uint64, err error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: keyUpperBound,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to iterate books: %w", storage.ErrIO, err)
	}
	defer func() {
		if cerr := it.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", storage.ErrIO, cerr)
		}
	}()

	if !it.Last() {
		if err := it.Error(); err != nil {
			return 0, fmt.Errorf("%w: %w", storage.ErrIO, err)
		}
		return 0, nil
	}
	return nextAfter(it.Key())
}

func bookKey(seq uint64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], seq)
	return key
}

// nextAfter returns the sequence number following the one in key.
func nextAfter(key []byte) (uint64, error) {
	if len(key) != len(keyPrefix)+8 {
		return 0, fmt.Errorf("%w: unexpected key %q", storage.ErrIO, key)
	}
	return binary.BigEndian.Uint64(key[len(keyPrefix):]) + 1, nil
}

var _ storage.Storage = (*Storage)(nil)
