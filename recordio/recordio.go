package recordio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"math/big"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/currency"
	"github.com/davidvella/shelf/isbn"
)

// Slot widths in bytes.
const (
	MaxTitleLength    = 30
	MaxNameLength     = 30
	MaxISBNLength     = isbn.MaxLength
	MaxCurrencyLength = currency.CodeLength

	LengthSize  = 4
	BoolSize    = 1
	TicksSize   = 8
	DecimalSize = 16
	PagesSize   = 4
)

// BlockSize is the encoded size of every book.
const BlockSize = (LengthSize + MaxTitleLength) +
	(LengthSize + MaxNameLength) + // author
	(LengthSize + MaxNameLength) + // publisher
	(LengthSize + MaxISBNLength) +
	(LengthSize + MaxCurrencyLength) +
	BoolSize + TicksSize + DecimalSize + PagesSize

const (
	ticksPerSecond = 10_000_000
	unixEpochTicks = 621_355_968_000_000_000
	maxTicks       = 3_155_378_975_999_999_999
	maxScale       = 28
	signBit        = 1 << 31
	scaleMask      = 0x00FF0000
)

var ErrMalformedRecord = errors.New("recordio: malformed record")

var (
	mask64  = new(big.Int).SetUint64(math.MaxUint64)
	bigTen  = big.NewInt(10)
	maxBits = 96
)

// BinaryWriter writes fixed-width fields.
type BinaryWriter struct {
	w io.Writer
}

func NewBinaryWriter(w io.Writer) BinaryWriter {
	return BinaryWriter{w: w}
}

// WriteString writes a length prefix followed by s in a slot of width bytes.
func (bw BinaryWriter) WriteString(s string, width int) (int64, error) {
	content := truncate(s, width)

	if err := binary.Write(bw.w, binary.LittleEndian, int32(len(content))); err != nil {
		return 0, fmt.Errorf("error writing string length: %w", err)
	}

	slot := make([]byte, width)
	copy(slot, content)
	n, err := bw.w.Write(slot)
	if err != nil {
		return LengthSize, fmt.Errorf("error writing string content: %w", err)
	}

	return LengthSize + int64(n), nil
}

func (bw BinaryWriter) WriteBool(v bool) (int64, error) {
	var b byte
	if v {
		b = 1
	}
	if _, err := bw.w.Write([]byte{b}); err != nil {
		return 0, err
	}
	return BoolSize, nil
}

func (bw BinaryWriter) WriteInt32(i int32) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, i); err != nil {
		return 0, err
	}
	return PagesSize, nil
}

func (bw BinaryWriter) WriteInt64(i int64) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, i); err != nil {
		return 0, err
	}
	return TicksSize, nil
}

// WriteDecimal writes d as a 96-bit coefficient and a flags word. Values with
// more than 28 fractional digits are rounded to 28.
func (bw BinaryWriter) WriteDecimal(d decimal.Decimal) (int64, error) {
	words, err := decimalWords(d)
	if err != nil {
		return 0, err
	}
	if err := binary.Write(bw.w, binary.LittleEndian, words); err != nil {
		return 0, fmt.Errorf("error writing decimal: %w", err)
	}
	return DecimalSize, nil
}

// BinaryReader reads fixed-width fields.
type BinaryReader struct {
	r io.Reader
}

func NewBinaryReader(r io.Reader) BinaryReader {
	return BinaryReader{r: r}
}

// ReadString reads a length prefix and a slot of width bytes, returning only
// the prefixed content.
func (br BinaryReader) ReadString(width int) (string, error) {
	var length int32
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return "", fmt.Errorf("error reading string length: %w", err)
	}

	slot := make([]byte, width)
	if _, err := io.ReadFull(br.r, slot); err != nil {
		return "", fmt.Errorf("error reading string content: %w", err)
	}

	if length < 0 || int(length) > width {
		return "", fmt.Errorf("%w: string length %d exceeds slot of %d bytes", ErrMalformedRecord, length, width)
	}

	return string(slot[:length]), nil
}

func (br BinaryReader) ReadBool() (bool, error) {
	var b [BoolSize]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: flag byte %#x", ErrMalformedRecord, b[0])
	}
}

func (br BinaryReader) ReadInt32() (int32, error) {
	var value int32
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadInt64() (int64, error) {
	var value int64
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadDecimal() (decimal.Decimal, error) {
	var words [4]uint32
	if err := binary.Read(br.r, binary.LittleEndian, &words); err != nil {
		return decimal.Zero, fmt.Errorf("error reading decimal: %w", err)
	}

	flags := words[3]
	if flags&^(signBit|scaleMask) != 0 {
		return decimal.Zero, fmt.Errorf("%w: decimal flags %#x", ErrMalformedRecord, flags)
	}
	scale := (flags & scaleMask) >> 16
	if scale > maxScale {
		return decimal.Zero, fmt.Errorf("%w: decimal scale %d", ErrMalformedRecord, scale)
	}

	coef := new(big.Int).SetUint64(uint64(words[2]))
	coef.Lsh(coef, 64)
	coef.Or(coef, new(big.Int).SetUint64(uint64(words[1])<<32|uint64(words[0])))
	if flags&signBit != 0 {
		coef.Neg(coef)
	}

	return decimal.NewFromBigInt(coef, -int32(scale)), nil
}

// Encode returns the BlockSize encoding of b. Nothing is produced when any
// field cannot be represented.
func Encode(b *book.Book) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil book", book.ErrInvalidArgument)
	}
	if b.Pages() > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d pages do not fit the block", book.ErrInvalidArgument, b.Pages())
	}

	var ticks int64
	date, published := b.PublishedOn()
	if published {
		ticks = toTicks(date)
		if ticks < 0 || ticks > maxTicks {
			return nil, fmt.Errorf("%w: publication date %s out of range", book.ErrInvalidArgument, date)
		}
	}

	var buf bytes.Buffer
	buf.Grow(BlockSize)
	bw := NewBinaryWriter(&buf)

	fields := []struct {
		name  string
		value string
		width int
	}{
		{name: "title", value: b.Title(), width: MaxTitleLength},
		{name: "author", value: b.Author(), width: MaxNameLength},
		{name: "publisher", value: b.Publisher(), width: MaxNameLength},
		{name: "isbn", value: b.ISBN(), width: MaxISBNLength},
		{name: "currency", value: b.Currency(), width: MaxCurrencyLength},
	}
	for _, f := range fields {
		if _, err := bw.WriteString(f.value, f.width); err != nil {
			return nil, fmt.Errorf("error writing %s: %w", f.name, err)
		}
	}

	if _, err := bw.WriteBool(published); err != nil {
		return nil, fmt.Errorf("error writing published flag: %w", err)
	}
	if _, err := bw.WriteInt64(ticks); err != nil {
		return nil, fmt.Errorf("error writing publication date: %w", err)
	}
	if _, err := bw.WriteDecimal(b.Price()); err != nil {
		return nil, fmt.Errorf("error writing price: %w", err)
	}
	if _, err := bw.WriteInt32(int32(b.Pages())); err != nil {
		return nil, fmt.Errorf("error writing pages: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode rebuilds a book from the first BlockSize bytes of block. An ISBN
// that fails validation is dropped, as it is at construction.
func Decode(block []byte) (*book.Book, error) {
	if len(block) < BlockSize {
		return nil, fmt.Errorf("%w: block is %d bytes, want %d", ErrMalformedRecord, len(block), BlockSize)
	}

	br := NewBinaryReader(bytes.NewReader(block[:BlockSize]))

	var text [5]string
	names := [5]string{"title", "author", "publisher", "isbn", "currency"}
	widths := [5]int{MaxTitleLength, MaxNameLength, MaxNameLength, MaxISBNLength, MaxCurrencyLength}
	for i := range text {
		s, err := br.ReadString(widths[i])
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", names[i], err)
		}
		text[i] = s
	}
	title, author, publisher, id, code := text[0], text[1], text[2], text[3], text[4]

	published, err := br.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("error reading published flag: %w", err)
	}
	ticks, err := br.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("error reading publication date: %w", err)
	}
	price, err := br.ReadDecimal()
	if err != nil {
		return nil, fmt.Errorf("error reading price: %w", err)
	}
	pages, err := br.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("error reading pages: %w", err)
	}

	b, err := book.New(author, title, publisher, book.WithISBN(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if code != "" || !price.IsZero() {
		if err := b.SetPrice(price, code); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
	}
	if pages != 0 {
		if err := b.SetPages(int(pages)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
	}
	if published {
		if ticks < 0 || ticks > maxTicks {
			return nil, fmt.Errorf("%w: publication ticks %d out of range", ErrMalformedRecord, ticks)
		}
		b.Publish(fromTicks(ticks))
	}

	return b, nil
}

// Write encodes b and writes the block to w in a single call.
func Write(w io.Writer, b *book.Book) (int64, error) {
	block, err := Encode(b)
	if err != nil {
		return 0, err
	}

	n, err := w.Write(block)
	if err != nil {
		return int64(n), fmt.Errorf("error writing block: %w", err)
	}
	if n != BlockSize {
		return int64(n), fmt.Errorf("error writing block: %w", io.ErrShortWrite)
	}

	return BlockSize, nil
}

// ReadRecord reads and decodes one block. It returns io.EOF when r is
// exhausted on a block boundary.
func ReadRecord(r io.Reader) (*book.Book, error) {
	block := make([]byte, BlockSize)
	n, err := io.ReadFull(r, block)
	switch {
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: short block of %d bytes", ErrMalformedRecord, n)
	case err != nil:
		return nil, fmt.Errorf("error reading block: %w", err)
	}

	return Decode(block)
}

// Seq creates an iterator over the books in r. Iteration stops after the
// first error, which is yielded with a nil book.
func Seq(r io.Reader) iter.Seq2[*book.Book, error] {
	return func(yield func(*book.Book, error) bool) {
		for {
			b, err := ReadRecord(r)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

// ReadRecords reads all books into a slice.
func ReadRecords(r io.Reader) ([]*book.Book, error) {
	books := make([]*book.Book, 0, 1)
	for b, err := range Seq(r) {
		if err != nil {
			return books, err
		}
		books = append(books, b)
	}
	return books, nil
}

// Count returns the number of whole blocks in size bytes.
func Count(size int64) int {
	return int(size / BlockSize)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	cut := width
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func toTicks(t time.Time) int64 {
	return unixEpochTicks + t.Unix()*ticksPerSecond + int64(t.Nanosecond())/100
}

func fromTicks(ticks int64) time.Time {
	d := ticks - unixEpochTicks
	sec, rem := d/ticksPerSecond, d%ticksPerSecond
	if rem < 0 {
		rem += ticksPerSecond
		sec--
	}
	return time.Unix(sec, rem*100).UTC()
}

func decimalWords(d decimal.Decimal) ([4]uint32, error) {
	if -d.Exponent() > maxScale {
		d = d.Round(maxScale)
	}

	coef := d.Coefficient()
	exp := d.Exponent()
	if exp > 0 {
		coef.Mul(coef, new(big.Int).Exp(bigTen, big.NewInt(int64(exp)), nil))
		exp = 0
	}

	var flags uint32
	if coef.Sign() < 0 {
		flags |= signBit
		coef.Neg(coef)
	}
	if coef.BitLen() > maxBits {
		return [4]uint32{}, fmt.Errorf("%w: %s exceeds 96-bit decimal precision", book.ErrInvalidArgument, d)
	}
	flags |= uint32(-exp) << 16

	low := new(big.Int).And(coef, mask64).Uint64()
	high := new(big.Int).Rsh(coef, 64).Uint64()

	return [4]uint32{uint32(low), uint32(low >> 32), uint32(high), flags}, nil
}
