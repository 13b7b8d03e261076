package shelf

import (
	"github.com/rs/zerolog"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/currency"
	"github.com/davidvella/shelf/storage"
)

// options defines all configuration options for a Shelf.
type options struct {
	storage         storage.Storage
	logger          *zerolog.Logger
	defaultCurrency string
	books           []*book.Book
}

// Option is a function that configures the shelf options.
type Option func(*options)

// WithStorage sets the backend used by Load and Save.
func WithStorage(st storage.Storage) Option {
	return func(o *options) {
		o.storage = st
	}
}

// WithLogger sets the logger passed to the catalog.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithDefaultCurrency sets the currency of books created by NewBook.
func WithDefaultCurrency(code string) Option {
	return func(o *options) {
		o.defaultCurrency = code
	}
}

// WithBooks seeds the catalog without duplicate checks.
func WithBooks(books ...*book.Book) Option {
	return func(o *options) {
		o.books = append(o.books, books...)
	}
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		defaultCurrency: currency.Default,
	}
}
