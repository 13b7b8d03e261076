package storage

import (
	"io"
	"iter"
	"sync"

	"github.com/davidvella/shelf/book"
)

// Cursor adapts a book sequence into Records. It stops at the first error,
// closes its handle when the sequence ends or is abandoned, and reports the
// number of books produced to done exactly once.
type Cursor struct {
	mu       sync.Mutex
	seq      iter.Seq2[*book.Book, error]
	closer   io.Closer
	done     func(n int)
	count    int
	used     bool
	closed   bool
	closeErr error
}

// NewCursor returns a Cursor over seq. closer and done may be nil.
func NewCursor(seq iter.Seq2[*book.Book, error], closer io.Closer, done func(n int)) *Cursor {
	return &Cursor{
		seq:    seq,
		closer: closer,
		done:   done,
	}
}

func (c *Cursor) All() iter.Seq2[*book.Book, error] {
	return func(yield func(*book.Book, error) bool) {
		c.mu.Lock()
		if c.used || c.closed {
			c.mu.Unlock()
			yield(nil, ErrConsumed)
			return
		}
		c.used = true
		c.mu.Unlock()

		defer c.Close()

		for b, err := range c.seq {
			if err != nil {
				yield(nil, err)
				return
			}
			c.mu.Lock()
			c.count++
			c.mu.Unlock()
			if !yield(b, nil) {
				return
			}
		}
	}
}

// Len returns the number of books produced so far.
func (c *Cursor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Cursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.closeErr
	}
	c.closed = true

	if c.closer != nil {
		c.closeErr = c.closer.Close()
	}
	if c.done != nil {
		c.done(c.count)
	}
	return c.closeErr
}
