// Package query provides predicates for catalog.Service.FindBy and
// comparators for catalog.Service.SortBy.
package query

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/catalog"
)

// EarliestPublication is the first day accepted by PublishedOn.
var EarliestPublication = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Pages matches books with exactly n pages.
func Pages(n int) catalog.Predicate {
	return catalog.PredicateFunc(func(b *book.Book) bool {
		return b.Pages() == n
	})
}

// PublishedOn matches books published on the calendar day of date. Dates
// before EarliestPublication or after today are rejected.
func PublishedOn(date time.Time) (catalog.Predicate, error) {
	return publishedOn(date, time.Now())
}

func publishedOn(date, now time.Time) (catalog.Predicate, error) {
	day := civil(date)
	if day.Before(EarliestPublication) || day.After(civil(now)) {
		return nil, fmt.Errorf("%w: publication date %s outside %s..today",
			book.ErrInvalidArgument, day.Format(book.DateLayout), EarliestPublication.Format(book.DateLayout))
	}

	return catalog.PredicateFunc(func(b *book.Book) bool {
		on, ok := b.PublishedOn()
		return ok && on.Equal(day)
	}), nil
}

// Author matches books whose author equals name, ignoring case.
func Author(name string) catalog.Predicate {
	return catalog.PredicateFunc(func(b *book.Book) bool {
		return strings.EqualFold(b.Author(), name)
	})
}

// Currency matches books priced in code.
func Currency(code string) catalog.Predicate {
	return catalog.PredicateFunc(func(b *book.Book) bool {
		return b.Currency() == code
	})
}

// Func adapts f to a Predicate.
func Func(f func(b *book.Book) bool) catalog.Predicate {
	return catalog.PredicateFunc(f)
}

// And matches books accepted by every predicate.
func And(predicates ...catalog.Predicate) catalog.Predicate {
	return catalog.PredicateFunc(func(b *book.Book) bool {
		for _, p := range predicates {
			if !p.Match(b) {
				return false
			}
		}
		return true
	})
}

// ByTitle orders books by title, ordinally.
func ByTitle(a, b *book.Book) int {
	return a.Compare(b)
}

func ByPages(a, b *book.Book) int {
	return cmp.Compare(a.Pages(), b.Pages())
}

// ByPrice orders books by price amount. Currencies are not converted.
func ByPrice(a, b *book.Book) int {
	return a.Price().Cmp(b.Price())
}

// Reverse inverts c.
func Reverse(c catalog.Comparator) catalog.Comparator {
	return func(a, b *book.Book) int {
		return c(b, a)
	}
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
