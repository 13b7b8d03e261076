package recordio_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/recordio"
)

var errWrite = errors.New("its a me errorio")

type mockWriter struct {
	err     error
	short   bool
	written []byte
}

func (w *mockWriter) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.short {
		w.written = append(w.written, p[:len(p)/2]...)
		return len(p) / 2, nil
	}
	w.written = append(w.written, p...)
	return len(p), nil
}

func newBook(t *testing.T, author, title, publisher, id string) *book.Book {
	t.Helper()
	b, err := book.New(author, title, publisher, book.WithISBN(id))
	require.NoError(t, err)
	return b
}

func assertSameBook(t *testing.T, want, got *book.Book) {
	t.Helper()
	assert.Equal(t, want.Author(), got.Author())
	assert.Equal(t, want.Title(), got.Title())
	assert.Equal(t, want.Publisher(), got.Publisher())
	assert.Equal(t, want.ISBN(), got.ISBN())
	assert.Equal(t, want.Pages(), got.Pages())
	assert.True(t, want.Price().Equal(got.Price()), "price %s != %s", want.Price(), got.Price())
	assert.Equal(t, want.Currency(), got.Currency())
	assert.Equal(t, want.PublicationDate(), got.PublicationDate())
	wantOn, wantOK := want.PublishedOn()
	gotOn, gotOK := got.PublishedOn()
	assert.Equal(t, wantOK, gotOK)
	assert.True(t, wantOn.Equal(gotOn), "published %s != %s", wantOn, gotOn)
}

func TestBlockSize(t *testing.T) {
	assert.Equal(t, 159, recordio.BlockSize)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *book.Book
	}{
		{
			name: "unpublished",
			setup: func(t *testing.T) *book.Book {
				b := newBook(t, "Jon Skeet", "After dark", "Manning Publications", "978-0-901-69066-1")
				require.NoError(t, b.SetPrice(decimal.NewFromInt(123), "USD"))
				require.NoError(t, b.SetPages(200))
				return b
			},
		},
		{
			name: "published",
			setup: func(t *testing.T) *book.Book {
				b := newBook(t, "Франсис Карсак", "Робинзоны", "Азбука", "978-5-389-19032-0")
				require.NoError(t, b.SetPrice(decimal.RequireFromString("190.50"), "EUR"))
				require.NoError(t, b.SetPages(450))
				b.Publish(time.Date(2020, 9, 9, 0, 0, 0, 0, time.UTC))
				return b
			},
		},
		{
			name: "no isbn no pages default price",
			setup: func(t *testing.T) *book.Book {
				return newBook(t, "Adam Levin", "XXX", "Manning Publications", "")
			},
		},
		{
			name: "fractional price",
			setup: func(t *testing.T) *book.Book {
				b := newBook(t, "a", "t", "p", "3-598-21508-8")
				require.NoError(t, b.SetPrice(decimal.RequireFromString("0.0000000000000000000000000001"), "GBP"))
				return b
			},
		},
		{
			name: "price with positive exponent",
			setup: func(t *testing.T) *book.Book {
				b := newBook(t, "a", "t", "p", "")
				require.NoError(t, b.SetPrice(decimal.New(5, 3), "JPY"))
				return b
			},
		},
		{
			name: "slots filled exactly",
			setup: func(t *testing.T) *book.Book {
				return newBook(t,
					strings.Repeat("a", recordio.MaxNameLength),
					strings.Repeat("t", recordio.MaxTitleLength),
					strings.Repeat("p", recordio.MaxNameLength),
					"978-0-901-69066-1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.setup(t)

			block, err := recordio.Encode(want)
			require.NoError(t, err)
			assert.Len(t, block, recordio.BlockSize)

			got, err := recordio.Decode(block)
			require.NoError(t, err)
			assertSameBook(t, want, got)
			assert.True(t, want.Equal(got))
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	b := newBook(t, "Jon", "Java", "Something", "3-598-21508-8")
	require.NoError(t, b.SetPrice(decimal.RequireFromString("19.99"), "USD"))
	require.NoError(t, b.SetPages(333))

	block, err := recordio.Encode(b)
	require.NoError(t, err)

	le := binary.LittleEndian
	assert.Equal(t, uint32(4), le.Uint32(block[0:4]))
	assert.Equal(t, "Java", string(block[4:8]))
	assert.Equal(t, make([]byte, 26), block[8:34], "title slot is zero padded")
	assert.Equal(t, uint32(3), le.Uint32(block[34:38]))
	assert.Equal(t, "Jon", string(block[38:41]))

	tail := block[recordio.BlockSize-recordio.PagesSize-recordio.DecimalSize-recordio.TicksSize-recordio.BoolSize:]
	assert.Equal(t, byte(0), tail[0], "unpublished flag")
	assert.Equal(t, uint64(0), le.Uint64(tail[1:9]), "unpublished ticks")

	price := tail[9:25]
	assert.Equal(t, uint32(1999), le.Uint32(price[0:4]))
	assert.Equal(t, uint32(0), le.Uint32(price[4:8]))
	assert.Equal(t, uint32(0), le.Uint32(price[8:12]))
	assert.Equal(t, uint32(2<<16), le.Uint32(price[12:16]))

	assert.Equal(t, uint32(333), le.Uint32(tail[25:29]))
}

func TestEncodePublishedTicks(t *testing.T) {
	b := newBook(t, "a", "t", "p", "")
	b.Publish(time.Date(2020, 9, 9, 0, 0, 0, 0, time.UTC))

	block, err := recordio.Encode(b)
	require.NoError(t, err)

	tail := block[recordio.BlockSize-recordio.PagesSize-recordio.DecimalSize-recordio.TicksSize-recordio.BoolSize:]
	assert.Equal(t, byte(1), tail[0])
	assert.Equal(t, int64(637352064000000000), int64(binary.LittleEndian.Uint64(tail[1:9])))
}

func TestTruncation(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "ascii",
			title: strings.Repeat("abcd", 10),
			want:  strings.Repeat("abcd", 7) + "ab",
		},
		{
			name:  "two byte runes split at slot edge",
			title: "Продается планета",
			want:  "Продается плане",
		},
		{
			name:  "three byte runes",
			title: "a" + strings.Repeat("€", 10),
			want:  "a" + strings.Repeat("€", 9),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBook(t, "a", tt.title, "p", "")

			block, err := recordio.Encode(b)
			require.NoError(t, err)

			got, err := recordio.Decode(block)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Title())
			assert.LessOrEqual(t, len(got.Title()), recordio.MaxTitleLength)
		})
	}
}

func TestEncodeNil(t *testing.T) {
	block, err := recordio.Encode(nil)
	assert.ErrorIs(t, err, book.ErrInvalidArgument)
	assert.Nil(t, block)
}

func TestDecodeMalformed(t *testing.T) {
	valid := func(t *testing.T) []byte {
		b := newBook(t, "Jon", "Java", "Something", "3-598-21508-8")
		require.NoError(t, b.SetPages(10))
		block, err := recordio.Encode(b)
		require.NoError(t, err)
		return block
	}
	tailOffset := recordio.BlockSize - recordio.PagesSize - recordio.DecimalSize - recordio.TicksSize - recordio.BoolSize

	tests := []struct {
		name   string
		mutate func(block []byte) []byte
	}{
		{
			name:   "short block",
			mutate: func(block []byte) []byte { return block[:recordio.BlockSize-1] },
		},
		{
			name: "title length exceeds slot",
			mutate: func(block []byte) []byte {
				binary.LittleEndian.PutUint32(block[0:4], recordio.MaxTitleLength+1)
				return block
			},
		},
		{
			name: "negative title length",
			mutate: func(block []byte) []byte {
				binary.LittleEndian.PutUint32(block[0:4], 0xFFFFFFFF)
				return block
			},
		},
		{
			name: "empty title",
			mutate: func(block []byte) []byte {
				binary.LittleEndian.PutUint32(block[0:4], 0)
				return block
			},
		},
		{
			name: "published flag out of range",
			mutate: func(block []byte) []byte {
				block[tailOffset] = 7
				return block
			},
		},
		{
			name: "decimal scale out of range",
			mutate: func(block []byte) []byte {
				binary.LittleEndian.PutUint32(block[tailOffset+9+12:], 29<<16)
				return block
			},
		},
		{
			name: "negative pages",
			mutate: func(block []byte) []byte {
				binary.LittleEndian.PutUint32(block[recordio.BlockSize-4:], 0xFFFFFFFF)
				return block
			},
		},
		{
			name: "invalid currency",
			mutate: func(block []byte) []byte {
				off := (4 + recordio.MaxTitleLength) + 2*(4+recordio.MaxNameLength) + (4 + recordio.MaxISBNLength)
				copy(block[off+4:], "XX1")
				return block
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := recordio.Decode(tt.mutate(valid(t)))
			assert.ErrorIs(t, err, recordio.ErrMalformedRecord)
			assert.Nil(t, b)
		})
	}
}

func TestDecodeDropsInvalidISBN(t *testing.T) {
	b := newBook(t, "Jon", "Java", "Something", "3-598-21508-8")
	block, err := recordio.Encode(b)
	require.NoError(t, err)

	off := (4 + recordio.MaxTitleLength) + 2*(4+recordio.MaxNameLength)
	copy(block[off+4:], "3-598-21508-9")

	got, err := recordio.Decode(block)
	require.NoError(t, err)
	assert.Empty(t, got.ISBN())
}

func TestDecodeIgnoresPadding(t *testing.T) {
	b := newBook(t, "Jon", "Java", "Something", "")
	block, err := recordio.Encode(b)
	require.NoError(t, err)

	copy(block[8:34], strings.Repeat("z", 26))

	got, err := recordio.Decode(block)
	require.NoError(t, err)
	assert.Equal(t, "Java", got.Title())
}

func TestWrite(t *testing.T) {
	b := newBook(t, "Jon", "Java", "Something", "")

	tests := []struct {
		name    string
		writer  *mockWriter
		wantN   int64
		wantErr error
	}{
		{name: "success", writer: &mockWriter{}, wantN: recordio.BlockSize},
		{name: "write error", writer: &mockWriter{err: errWrite}, wantErr: errWrite},
		{name: "short write", writer: &mockWriter{short: true}, wantN: recordio.BlockSize / 2, wantErr: io.ErrShortWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := recordio.Write(tt.writer, b)
			assert.Equal(t, tt.wantN, n)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tt.writer.written, recordio.BlockSize)
		})
	}
}

func TestWriteNilProducesNothing(t *testing.T) {
	w := &mockWriter{}
	n, err := recordio.Write(w, nil)
	assert.ErrorIs(t, err, book.ErrInvalidArgument)
	assert.Zero(t, n)
	assert.Empty(t, w.written)
}

func TestSeq(t *testing.T) {
	titles := []string{"XXX", "After dark", "Eat, pray, love"}

	var buf bytes.Buffer
	for _, title := range titles {
		_, err := recordio.Write(&buf, newBook(t, "a", title, "p", ""))
		require.NoError(t, err)
	}

	var got []string
	for b, err := range recordio.Seq(bytes.NewReader(buf.Bytes())) {
		require.NoError(t, err)
		got = append(got, b.Title())
	}
	assert.Equal(t, titles, got)

	t.Run("stops early", func(t *testing.T) {
		count := 0
		for range recordio.Seq(bytes.NewReader(buf.Bytes())) {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})

	t.Run("trailing partial block", func(t *testing.T) {
		data := append(bytes.Clone(buf.Bytes()), 1, 2, 3)
		books, err := recordio.ReadRecords(bytes.NewReader(data))
		assert.ErrorIs(t, err, recordio.ErrMalformedRecord)
		assert.Len(t, books, len(titles))
	})
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, recordio.Count(0))
	assert.Equal(t, 0, recordio.Count(recordio.BlockSize-1))
	assert.Equal(t, 1, recordio.Count(recordio.BlockSize))
	assert.Equal(t, 3, recordio.Count(3*recordio.BlockSize+10))
}
