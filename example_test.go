package shelf_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/davidvella/shelf"
	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/query"
	"github.com/davidvella/shelf/storage/local"
)

// ExampleShelf demonstrates saving a catalog and loading it back.
func ExampleShelf() {
	dir, err := os.MkdirTemp("", "shelf-*")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	// Create storage
	st := local.NewLocalStorage(filepath.Join(dir, "books.db"), local.WithLogger(zerolog.Nop()))

	s, err := shelf.Open(shelf.WithStorage(st), shelf.WithLogger(zerolog.Nop()))
	if err != nil {
		fmt.Printf("Failed to open shelf: %v\n", err)
		return
	}
	defer s.Close()

	titles := []string{"XXX", "After dark", "Eat, pray, love"}
	ids := []string{"978-0-547-92822-7", "978-0-307-34001-6", "978-0-143-03841-2"}
	for i, title := range titles {
		b, err := s.NewBook("Author", title, "Publisher", book.WithISBN(ids[i]))
		if err != nil {
			fmt.Printf("Failed to create book: %v\n", err)
			return
		}
		if err := b.SetPages(150 * (i + 1)); err != nil {
			return
		}
		if err := s.Catalog().Add(b); err != nil {
			return
		}
	}
	s.Catalog().All()[2].Publish(time.Date(2006, time.February, 16, 0, 0, 0, 0, time.UTC))

	if err := s.Save(false); err != nil {
		fmt.Printf("Failed to save: %v\n", err)
		return
	}

	// Reload into an empty catalog
	s.Catalog().Clear()
	if err := s.Load(); err != nil {
		fmt.Printf("Failed to load: %v\n", err)
		return
	}

	for _, b := range s.Catalog().SortBy(nil) {
		fmt.Printf("%s: %d pages, %s\n", b, b.Pages(), b.PublicationDate())
	}

	found, err := s.Catalog().FindBy(query.Pages(450))
	if err != nil {
		return
	}
	for b := range found {
		fmt.Printf("Found: %s\n", b.Title())
	}

	// Output:
	// After dark by Author: 300 pages, NYP
	// Eat, pray, love by Author: 450 pages, 02/16/2006
	// XXX by Author: 150 pages, NYP
	// Found: Eat, pray, love
}
