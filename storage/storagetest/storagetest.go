// Package storagetest provides a behavioural suite shared by every
// storage.Storage implementation.
package storagetest

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/storage"
)

// Factory returns an empty storage for one test.
type Factory func(t *testing.T) storage.Storage

// Books returns a small fixed set of books covering every field.
func Books(t *testing.T) []*book.Book {
	t.Helper()

	first, err := book.New("Jon Skeet", "C# in depth", "Manning", book.WithISBN("978-1-617-29453-2"))
	require.NoError(t, err)
	require.NoError(t, first.SetPages(528))
	require.NoError(t, first.SetPrice(decimal.RequireFromString("44.99"), "USD"))
	first.Publish(time.Date(2019, time.March, 23, 0, 0, 0, 0, time.UTC))

	second, err := book.New("Elizabeth Gilbert", "Eat, pray, love", "Penguin", book.WithISBN("978-0-143-03841-2"))
	require.NoError(t, err)
	require.NoError(t, second.SetPages(450))

	third, err := book.New("Экзюпери", "Маленький принц", "Эксмо")
	require.NoError(t, err)
	require.NoError(t, third.SetPrice(decimal.RequireFromString("350"), "RUB"))

	return []*book.Book{first, second, third}
}

// Collect drains records and closes them.
func Collect(t *testing.T, records storage.Records) []*book.Book {
	t.Helper()
	defer func() { assert.NoError(t, records.Close()) }()

	var books []*book.Book
	for b, err := range records.All() {
		require.NoError(t, err)
		books = append(books, b)
	}
	return books
}

// AssertSameBooks checks that got holds the persisted form of want in order.
func AssertSameBooks(t *testing.T, want, got []*book.Book) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ISBN(), got[i].ISBN())
		assert.Equal(t, want[i].Author(), got[i].Author())
		assert.Equal(t, want[i].Title(), got[i].Title())
		assert.Equal(t, want[i].Publisher(), got[i].Publisher())
		assert.Equal(t, want[i].Pages(), got[i].Pages())
		assert.True(t, want[i].Price().Equal(got[i].Price()))
		assert.Equal(t, want[i].Currency(), got[i].Currency())
		assert.Equal(t, want[i].PublicationDate(), got[i].PublicationDate())
	}
}

// Run exercises the storage.Storage contract against storages built by
// newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Run("save then load", func(t *testing.T) {
		s := newStorage(t)
		books := Books(t)

		require.NoError(t, s.Save(slices.Values(books), false))

		records, err := s.Load()
		require.NoError(t, err)
		AssertSameBooks(t, books, Collect(t, records))
		assert.Equal(t, len(books), s.LastLoadSize())
	})

	t.Run("overwrite replaces", func(t *testing.T) {
		s := newStorage(t)
		books := Books(t)

		require.NoError(t, s.Save(slices.Values(books), false))
		require.NoError(t, s.Save(slices.Values(books[:1]), false))

		records, err := s.Load()
		require.NoError(t, err)
		AssertSameBooks(t, books[:1], Collect(t, records))
	})

	t.Run("append extends", func(t *testing.T) {
		s := newStorage(t)
		books := Books(t)

		require.NoError(t, s.Save(slices.Values(books[:1]), false))
		require.NoError(t, s.Save(slices.Values(books[1:]), true))

		records, err := s.Load()
		require.NoError(t, err)
		AssertSameBooks(t, books, Collect(t, records))
		assert.Equal(t, len(books), s.LastLoadSize())
	})

	t.Run("empty save", func(t *testing.T) {
		s := newStorage(t)

		require.NoError(t, s.Save(slices.Values([]*book.Book(nil)), false))

		records, err := s.Load()
		require.NoError(t, err)
		assert.Empty(t, Collect(t, records))
		assert.Zero(t, s.LastLoadSize())
	})

	t.Run("records are one-shot", func(t *testing.T) {
		s := newStorage(t)
		require.NoError(t, s.Save(slices.Values(Books(t)), false))

		records, err := s.Load()
		require.NoError(t, err)
		Collect(t, records)

		for b, err := range records.All() {
			assert.Nil(t, b)
			assert.ErrorIs(t, err, storage.ErrConsumed)
		}
	})

	t.Run("early stop counts produced books", func(t *testing.T) {
		s := newStorage(t)
		require.NoError(t, s.Save(slices.Values(Books(t)), false))

		records, err := s.Load()
		require.NoError(t, err)
		for _, err := range records.All() {
			require.NoError(t, err)
			break
		}
		assert.NoError(t, records.Close())
		assert.NoError(t, records.Close())
		assert.Equal(t, 1, s.LastLoadSize())
	})

	t.Run("nil book is rejected", func(t *testing.T) {
		s := newStorage(t)

		err := s.Save(slices.Values([]*book.Book{nil}), false)
		assert.ErrorIs(t, err, book.ErrInvalidArgument)
	})

	t.Run("last load size is settable", func(t *testing.T) {
		s := newStorage(t)
		s.SetLastLoadSize(7)
		assert.Equal(t, 7, s.LastLoadSize())
	})
}
