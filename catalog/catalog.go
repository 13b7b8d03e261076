// Package catalog owns an ordered in-memory collection of books and
// delegates persistence to a storage.Storage.
//
// Books are identified by ISBN. Insertion order is kept: it is the order
// books are saved in and the tie-break order of a stable sort.
package catalog

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/google/btree"
	"github.com/rs/zerolog"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/monitoring"
	"github.com/davidvella/shelf/storage"
)

var (
	// ErrDuplicate is returned by Add when a book with the same ISBN exists.
	ErrDuplicate = errors.New("catalog: book already present")
	// ErrNotFound is returned by Remove when no book with the ISBN exists.
	ErrNotFound = errors.New("catalog: book not found")
	// ErrNoStorage is returned by Save and Load without a storage.
	ErrNoStorage = errors.New("catalog: storage not supplied")
)

const indexDegree = 16

// Predicate selects books.
type Predicate interface {
	Match(b *book.Book) bool
}

// PredicateFunc adapts a function to a Predicate.
type PredicateFunc func(b *book.Book) bool

func (f PredicateFunc) Match(b *book.Book) bool { return f(b) }

// Comparator orders two books, returning a negative number when a sorts
// before b, zero when they are equivalent and a positive number otherwise.
type Comparator func(a, b *book.Book) int

// entry counts the books in the collection sharing an ISBN. Books added
// through WithBooks or Load skip the duplicate check, so a count can exceed
// one.
type entry struct {
	isbn  string
	count int
}

func entryLess(a, b entry) bool { return a.isbn < b.isbn }

// Service is the catalog. It is safe for concurrent use.
type Service struct {
	mu     sync.RWMutex
	books  []*book.Book
	index  *btree.BTreeG[entry]
	logger zerolog.Logger
}

type Option func(*Service)

// WithBooks seeds the catalog without duplicate checks. Nil books are
// skipped.
func WithBooks(books ...*book.Book) Option {
	return func(s *Service) {
		for _, b := range books {
			if b != nil {
				s.insert(b)
			}
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		index:  btree.NewG(indexDegree, entryLess),
		logger: monitoring.NewLogger("catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends b unless a book with the same ISBN is already present.
func (s *Service) Add(b *book.Book) error {
	if b == nil {
		return fmt.Errorf("%w: nil book", book.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index.Has(entry{isbn: b.ISBN()}) {
		return fmt.Errorf("%w: isbn %q", ErrDuplicate, b.ISBN())
	}
	s.insert(b)

	s.logger.Debug().Str("isbn", b.ISBN()).Stringer("book", b).Msg("added book")
	return nil
}

// Remove deletes the first book with the same ISBN as b.
func (s *Service) Remove(b *book.Book) error {
	if b == nil {
		return fmt.Errorf("%w: nil book", book.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.books, b.Equal)
	if i < 0 {
		return fmt.Errorf("%w: isbn %q", ErrNotFound, b.ISBN())
	}
	removed := s.books[i]
	s.books = slices.Delete(s.books, i, i+1)

	e, _ := s.index.Get(entry{isbn: removed.ISBN()})
	if e.count <= 1 {
		s.index.Delete(e)
	} else {
		e.count--
		s.index.ReplaceOrInsert(e)
	}

	s.logger.Debug().Str("isbn", removed.ISBN()).Stringer("book", removed).Msg("removed book")
	return nil
}

// All returns a copy of the collection in its current order.
func (s *Service) All() []*book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.books)
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// Contains reports whether a book with the same ISBN as b is present.
func (s *Service) Contains(b *book.Book) bool {
	if b == nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Has(entry{isbn: b.ISBN()})
}

// Identifiers returns the distinct non-empty ISBNs in ascending order.
func (s *Service) Identifiers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, s.index.Len())
	s.index.Ascend(func(e entry) bool {
		if e.isbn != "" {
			ids = append(ids, e.isbn)
		}
		return true
	})
	return ids
}

// FindBy returns the books matching p. Each iteration scans the collection
// as it is when the iteration starts.
func (s *Service) FindBy(p Predicate) (iter.Seq[*book.Book], error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil predicate", book.ErrInvalidArgument)
	}

	return func(yield func(*book.Book) bool) {
		for _, b := range s.All() {
			if p.Match(b) && !yield(b) {
				return
			}
		}
	}, nil
}

// SortBy stably reorders the collection with cmp, or by title when cmp is
// nil, and returns a copy of the result.
func (s *Service) SortBy(cmp Comparator) []*book.Book {
	if cmp == nil {
		cmp = (*book.Book).Compare
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slices.SortStableFunc(s.books, cmp)
	s.logger.Debug().Int("books", len(s.books)).Msg("sorted catalog")

	return slices.Clone(s.books)
}

// Save writes the whole collection to st, replacing its contents unless
// appendMode is set.
func (s *Service) Save(st storage.Storage, appendMode bool) error {
	if st == nil {
		return ErrNoStorage
	}

	books := s.All()
	if err := st.Save(slices.Values(books), appendMode); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}

	s.logger.Info().Int("books", len(books)).Bool("append", appendMode).Msg("saved catalog")
	return nil
}

// Load appends every book in st to the collection, keeping existing
// entries. Nothing is appended if any record fails to load.
func (s *Service) Load(st storage.Storage) (err error) {
	if st == nil {
		return ErrNoStorage
	}

	records, err := st.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	defer func() {
		if cerr := records.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close records: %w", cerr)
		}
	}()

	var loaded []*book.Book
	for b, err := range records.All() {
		if err != nil {
			return fmt.Errorf("failed to load book %d: %w", len(loaded), err)
		}
		loaded = append(loaded, b)
	}

	s.mu.Lock()
	for _, b := range loaded {
		s.insert(b)
	}
	total := len(s.books)
	s.mu.Unlock()

	s.logger.Info().Int("loaded", len(loaded)).Int("books", total).Msg("loaded catalog")
	return nil
}

// Clear empties the collection. Storage is not touched.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books = nil
	s.index.Clear(false)
}

func (s *Service) insert(b *book.Book) {
	s.books = append(s.books, b)

	e, _ := s.index.Get(entry{isbn: b.ISBN()})
	e.isbn = b.ISBN()
	e.count++
	s.index.ReplaceOrInsert(e)
}
