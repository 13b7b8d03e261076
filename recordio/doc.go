// Package recordio implements the fixed-width binary block format used to
// persist book.Book values. Every block is exactly BlockSize bytes, so a file
// of blocks needs no header and its record count is its size divided by
// BlockSize.
//
// Block layout (all integers little-endian):
//
//	----------------------------------------------------------------
//	| title len(4)     | title(30)     |
//	| author len(4)    | author(30)    |
//	| publisher len(4) | publisher(30) |
//	| isbn len(4)      | isbn(17)      |
//	| currency len(4)  | currency(3)   |
//	| published(1) | ticks(8) | price(16) | pages(4)                |
//	----------------------------------------------------------------
//
// Text fields are UTF-8. A value longer than its slot is truncated to the
// slot width, backing off to the previous rune boundary so a code point is
// never split; the slot is zero padded. Truncation is part of the format and
// is not reported as an error.
//
// ticks counts 100-nanosecond intervals since 0001-01-01 00:00:00 UTC and is
// zero for unpublished books. price is a 96-bit unsigned coefficient (low,
// middle, high 32-bit words) followed by a flags word holding the decimal
// scale in bits 16-23 and the sign in bit 31.
//
// Basic usage:
//
//	b, _ := book.New("Jon Skeet", "After dark", "Manning Publications")
//
//	var buf bytes.Buffer
//	if _, err := recordio.Write(&buf, b); err != nil {
//	    log.Fatal(err)
//	}
//
//	for b, err := range recordio.Seq(&buf) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(b)
//	}
package recordio
