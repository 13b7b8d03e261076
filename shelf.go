// Package shelf ties a catalog to a storage backend.
//
// A Shelf is usually opened from configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	s, err := shelf.OpenConfig(cfg)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	if err := s.Load(); err != nil {
//		return err
//	}
package shelf

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/catalog"
	"github.com/davidvella/shelf/config"
	"github.com/davidvella/shelf/currency"
	"github.com/davidvella/shelf/monitoring"
	"github.com/davidvella/shelf/storage"
	"github.com/davidvella/shelf/storage/local"
	"github.com/davidvella/shelf/storage/memory"
	"github.com/davidvella/shelf/storage/pebble"
)

// ErrUnknownBackend is returned by OpenConfig for an unsupported backend.
var ErrUnknownBackend = errors.New("shelf: unknown storage backend")

// Shelf manages a catalog and the storage it is persisted to.
type Shelf struct {
	catalog         *catalog.Service
	storage         storage.Storage
	defaultCurrency string

	once     sync.Once
	closeErr error
}

// Open creates a shelf. Without WithStorage books are kept in
// local.DefaultPath.
func Open(opts ...Option) (*Shelf, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if !currency.IsValid(o.defaultCurrency) {
		return nil, fmt.Errorf("%w: invalid default currency %q", book.ErrValidation, o.defaultCurrency)
	}

	if o.storage == nil {
		o.storage = local.NewLocalStorage(local.DefaultPath)
	}

	catalogOpts := []catalog.Option{catalog.WithBooks(o.books...)}
	if o.logger != nil {
		catalogOpts = append(catalogOpts, catalog.WithLogger(*o.logger))
	}

	return &Shelf{
		catalog:         catalog.New(catalogOpts...),
		storage:         o.storage,
		defaultCurrency: o.defaultCurrency,
	}, nil
}

// OpenConfig initialises logging and opens a shelf on the backend named by
// cfg.
func OpenConfig(cfg *config.Config, opts ...Option) (*Shelf, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := monitoring.Init(cfg.App.Environment, cfg.App.LogLevel); err != nil {
		return nil, err
	}

	code, err := cfg.DefaultCurrency()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default currency: %w", err)
	}

	st, err := newStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	s, err := Open(append([]Option{WithStorage(st), WithDefaultCurrency(code)}, opts...)...)
	if err != nil {
		if c, ok := st.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
		return nil, err
	}
	return s, nil
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case config.StorageBinary:
		return local.NewLocalStorage(cfg.Path), nil
	case config.StorageMemory:
		return memory.NewMemoryStorage(), nil
	case config.StoragePebble:
		st, err := pebble.NewStorage(pebble.StorageOptions{
			Path:         cfg.PebbleDir,
			CacheSize:    cfg.PebbleCacheSize,
			MaxOpenFiles: cfg.PebbleMaxOpenFiles,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Catalog returns the in-memory catalog.
func (s *Shelf) Catalog() *catalog.Service {
	return s.catalog
}

func (s *Shelf) Storage() storage.Storage {
	return s.storage
}

func (s *Shelf) DefaultCurrency() string {
	return s.defaultCurrency
}

// NewBook creates a book priced in the shelf's default currency. It is not
// added to the catalog.
func (s *Shelf) NewBook(author, title, publisher string, opts ...book.Option) (*book.Book, error) {
	return book.New(author, title, publisher, append([]book.Option{book.WithDefaultCurrency(s.defaultCurrency)}, opts...)...)
}

// Load appends the stored books to the catalog.
func (s *Shelf) Load() error {
	return s.catalog.Load(s.storage)
}

// Save writes the catalog to storage, replacing it unless appendMode is set.
func (s *Shelf) Save(appendMode bool) error {
	return s.catalog.Save(s.storage, appendMode)
}

// Close releases the storage if it holds resources. It does not save.
func (s *Shelf) Close() error {
	s.once.Do(func() {
		if c, ok := s.storage.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
	return s.closeErr
}
