// Package storage defines the contract between a catalog and the backends
// that persist it.
//
// A backend saves an ordered sequence of books and loads them back as a
// finite, one-shot sequence. Implementations live in subpackages: local (a
// flat file of fixed-size blocks), memory and pebble.
package storage

import (
	"errors"
	"fmt"
	"iter"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/recordio"
)

var (
	// ErrIO is returned when a backend cannot open, read or write its data.
	ErrIO = errors.New("storage: i/o failure")

	// ErrConsumed is yielded when loaded records are iterated a second time.
	ErrConsumed = errors.New("storage: records already consumed")
)

// Storage persists an ordered collection of books.
type Storage interface {
	// Save writes books in order. Existing data is discarded unless
	// appendMode is set.
	Save(books iter.Seq[*book.Book], appendMode bool) error
	// Load opens the stored books for a single pass in stored order.
	Load() (Records, error)
	// LastLoadSize reports how many books the most recent Load produced.
	LastLoadSize() int
	SetLastLoadSize(n int)
}

// Records is the result of Storage.Load. All may be ranged over once; Close
// releases the underlying handle and is safe to call more than once.
type Records interface {
	All() iter.Seq2[*book.Book, error]
	Close() error
}

// WrapIO marks every error from seq that is not a malformed record as ErrIO.
func WrapIO(seq iter.Seq2[*book.Book, error]) iter.Seq2[*book.Book, error] {
	return func(yield func(*book.Book, error) bool) {
		for b, err := range seq {
			if err != nil && !errors.Is(err, recordio.ErrMalformedRecord) && !errors.Is(err, ErrIO) {
				err = fmt.Errorf("%w: %w", ErrIO, err)
			}
			if !yield(b, err) {
				return
			}
		}
	}
}
