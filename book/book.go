// Package book defines the Book entity kept in a catalog.
//
// A Book is identified by its ISBN: two books with the same ISBN are the same
// book whatever their other fields hold, and books without an ISBN all compare
// equal to one another. Books order by title using ordinal (byte-wise)
// comparison.
package book

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/davidvella/shelf/currency"
	"github.com/davidvella/shelf/isbn"
)

var (
	// ErrInvalidArgument is returned when a required input is missing.
	ErrInvalidArgument = errors.New("book: invalid argument")

	// ErrValidation is returned when a value would break a Book invariant.
	ErrValidation = errors.New("book: validation failed")
)

// NotYetPublished is the publication date string of an unpublished book.
const NotYetPublished = "NYP"

// DateLayout formats publication dates as MM/dd/yyyy.
const DateLayout = "01/02/2006"

// Book is a catalog entry. Author, title, publisher and ISBN are fixed at
// construction; page count, price and publication state change only through
// their methods.
type Book struct {
	author    string
	title     string
	publisher string
	isbn      string

	pages    int
	price    decimal.Decimal
	currency string

	published   bool
	publishedOn time.Time
}

type options struct {
	isbn     string
	currency string
}

// Option configures a Book at construction.
type Option func(*options)

// WithISBN sets the identifier. An identifier that fails ISBN validation is
// dropped and the book is created without one.
func WithISBN(s string) Option {
	return func(o *options) {
		o.isbn = s
	}
}

// WithDefaultCurrency sets the currency reported before SetPrice is called.
func WithDefaultCurrency(code string) Option {
	return func(o *options) {
		o.currency = code
	}
}

func defaultOptions() options {
	return options{
		currency: currency.Default,
	}
}

// New creates a book. Author, title and publisher must be non-empty.
func New(author, title, publisher string, opts ...Option) (*Book, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	err := validation.Errors{
		"author":    validation.Validate(author, validation.Required.Error("author is required")),
		"title":     validation.Validate(title, validation.Required.Error("title is required")),
		"publisher": validation.Validate(publisher, validation.Required.Error("publisher is required")),
		"currency":  validation.Validate(o.currency, validation.By(validCurrency)),
	}.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	b := &Book{
		author:    author,
		title:     title,
		publisher: publisher,
		currency:  o.currency,
	}
	if isbn.IsValid(o.isbn) {
		b.isbn = o.isbn
	}

	return b, nil
}

func (b *Book) Author() string    { return b.author }
func (b *Book) Title() string     { return b.title }
func (b *Book) Publisher() string { return b.publisher }

// ISBN returns the identifier, or "" when the book has none.
func (b *Book) ISBN() string { return b.isbn }

// Pages returns the page count, zero until SetPages succeeds.
func (b *Book) Pages() int { return b.pages }

func (b *Book) Price() decimal.Decimal { return b.price }
func (b *Book) Currency() string       { return b.currency }

// SetPages sets the page count, which must be positive.
func (b *Book) SetPages(n int) error {
	err := validation.Validate(n,
		validation.Required.Error("pages must be greater than zero"),
		validation.Min(1).Error("pages must be greater than zero"),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	b.pages = n
	return nil
}

// SetPrice sets price and currency together. Neither changes unless both are
// valid.
func (b *Book) SetPrice(price decimal.Decimal, code string) error {
	err := validation.Errors{
		"price":    validation.Validate(price, validation.By(nonNegative)),
		"currency": validation.Validate(code, validation.By(validCurrency)),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	b.price = price
	b.currency = code
	return nil
}

// Publish marks the book as published on the calendar day of date. Calling it
// again replaces the date; a book never returns to unpublished.
func (b *Book) Publish(date time.Time) {
	y, m, d := date.Date()
	b.publishedOn = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	b.published = true
}

func (b *Book) IsPublished() bool { return b.published }

// PublishedOn returns the publication day at midnight UTC.
func (b *Book) PublishedOn() (time.Time, bool) {
	return b.publishedOn, b.published
}

// PublicationDate returns the publication day as MM/dd/yyyy, or
// NotYetPublished.
func (b *Book) PublicationDate() string {
	if !b.published {
		return NotYetPublished
	}
	return b.publishedOn.Format(DateLayout)
}

// Equal reports whether b and other share an ISBN.
func (b *Book) Equal(other *Book) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.isbn == other.isbn
}

// Compare orders books by title. A nil book sorts first.
func (b *Book) Compare(other *Book) int {
	switch {
	case b == nil && other == nil:
		return 0
	case b == nil:
		return -1
	case other == nil:
		return 1
	}
	return strings.Compare(b.title, other.title)
}

func (b *Book) String() string {
	return b.title + " by " + b.author
}

func nonNegative(value interface{}) error {
	price, _ := value.(decimal.Decimal)
	if price.IsNegative() {
		return errors.New("price cannot be negative")
	}
	return nil
}

func validCurrency(value interface{}) error {
	code, _ := value.(string)
	if !currency.IsValid(code) {
		return fmt.Errorf("invalid currency code %q", code)
	}
	return nil
}
