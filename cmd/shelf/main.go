// Command shelf manages a book catalog from the command line.
//
// Usage:
//
//	shelf list [-sort title|pages|price] [-reverse]
//	shelf add -author A -title T -publisher P [-isbn I] [-pages N] [-price X] [-currency C] [-published YYYY-MM-DD]
//	shelf find [-pages N] [-author A] [-currency C] [-published YYYY-MM-DD]
//	shelf publish -isbn I [-date YYYY-MM-DD]
//	shelf remove -isbn I
//
// Settings are read from the environment and .env; see package config.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/davidvella/shelf"
	"github.com/davidvella/shelf/book"
	"github.com/davidvella/shelf/catalog"
	"github.com/davidvella/shelf/config"
	"github.com/davidvella/shelf/query"
)

const dateFormat = time.DateOnly

var errUsage = errors.New("usage: shelf list|add|find|publish|remove [flags]")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	s, err := shelf.OpenConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open shelf")
	}

	err = run(s, os.Args[1:], os.Stdout)
	if cerr := s.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("failed to close storage")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run loads the shelf, executes one command and saves the result if the
// command changed the catalog.
func run(s *shelf.Shelf, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	if err := s.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var (
		changed bool
		err     error
	)
	switch args[0] {
	case "list":
		err = list(s, args[1:], out)
	case "add":
		changed, err = add(s, args[1:], out)
	case "find":
		err = find(s, args[1:], out)
	case "publish":
		changed, err = publish(s, args[1:], out)
	case "remove":
		changed, err = remove(s, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
	if err != nil || !changed {
		return err
	}

	return s.Save(false)
}

func list(s *shelf.Shelf, args []string, out io.Writer) error {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	sortBy := fset.String("sort", "", "order by title, pages or price")
	reverse := fset.Bool("reverse", false, "reverse the order")
	if err := fset.Parse(args); err != nil {
		return err
	}

	var cmp catalog.Comparator
	switch *sortBy {
	case "":
	case "title":
		cmp = query.ByTitle
	case "pages":
		cmp = query.ByPages
	case "price":
		cmp = query.ByPrice
	default:
		return fmt.Errorf("unknown sort %q", *sortBy)
	}

	books := s.Catalog().All()
	if cmp != nil || *reverse {
		if cmp == nil {
			cmp = query.ByTitle
		}
		if *reverse {
			cmp = query.Reverse(cmp)
		}
		books = s.Catalog().SortBy(cmp)
	}

	for _, b := range books {
		printBook(out, b)
	}
	return nil
}

func add(s *shelf.Shelf, args []string, out io.Writer) (bool, error) {
	fset := flag.NewFlagSet("add", flag.ContinueOnError)
	author := fset.String("author", "", "author")
	title := fset.String("title", "", "title")
	publisher := fset.String("publisher", "", "publisher")
	id := fset.String("isbn", "", "ISBN-10 or ISBN-13")
	pages := fset.Int("pages", 0, "page count")
	price := fset.String("price", "", "price, e.g. 19.99")
	code := fset.String("currency", "", "ISO 4217 currency, defaults to the shelf currency")
	published := fset.String("published", "", "publication date, "+dateFormat)
	if err := fset.Parse(args); err != nil {
		return false, err
	}

	b, err := s.NewBook(*author, *title, *publisher, book.WithISBN(*id))
	if err != nil {
		return false, err
	}
	if *id != "" && b.ISBN() == "" {
		fmt.Fprintf(out, "warning: dropping invalid ISBN %q\n", *id)
	}
	if *pages != 0 {
		if err := b.SetPages(*pages); err != nil {
			return false, err
		}
	}
	if *price != "" || *code != "" {
		amount := decimal.Zero
		if *price != "" {
			if amount, err = decimal.NewFromString(*price); err != nil {
				return false, fmt.Errorf("%w: price %q: %w", book.ErrInvalidArgument, *price, err)
			}
		}
		if *code == "" {
			*code = b.Currency()
		}
		if err := b.SetPrice(amount, *code); err != nil {
			return false, err
		}
	}
	if *published != "" {
		date, err := time.Parse(dateFormat, *published)
		if err != nil {
			return false, fmt.Errorf("%w: date %q: %w", book.ErrInvalidArgument, *published, err)
		}
		b.Publish(date)
	}

	if err := s.Catalog().Add(b); err != nil {
		return false, err
	}
	fmt.Fprintf(out, "added %s\n", b)
	return true, nil
}

func find(s *shelf.Shelf, args []string, out io.Writer) error {
	fset := flag.NewFlagSet("find", flag.ContinueOnError)
	pages := fset.Int("pages", 0, "exact page count")
	author := fset.String("author", "", "author, case-insensitive")
	code := fset.String("currency", "", "currency")
	published := fset.String("published", "", "publication date, "+dateFormat)
	if err := fset.Parse(args); err != nil {
		return err
	}

	var predicates []catalog.Predicate
	if *pages != 0 {
		predicates = append(predicates, query.Pages(*pages))
	}
	if *author != "" {
		predicates = append(predicates, query.Author(*author))
	}
	if *code != "" {
		predicates = append(predicates, query.Currency(*code))
	}
	if *published != "" {
		date, err := time.Parse(dateFormat, *published)
		if err != nil {
			return fmt.Errorf("%w: date %q: %w", book.ErrInvalidArgument, *published, err)
		}
		p, err := query.PublishedOn(date)
		if err != nil {
			return err
		}
		predicates = append(predicates, p)
	}

	found, err := s.Catalog().FindBy(query.And(predicates...))
	if err != nil {
		return err
	}
	for b := range found {
		printBook(out, b)
	}
	return nil
}

func publish(s *shelf.Shelf, args []string, out io.Writer) (bool, error) {
	fset := flag.NewFlagSet("publish", flag.ContinueOnError)
	id := fset.String("isbn", "", "ISBN of the book")
	date := fset.String("date", "", "publication date, "+dateFormat+"; defaults to today")
	if err := fset.Parse(args); err != nil {
		return false, err
	}

	on := time.Now()
	if *date != "" {
		var err error
		if on, err = time.Parse(dateFormat, *date); err != nil {
			return false, fmt.Errorf("%w: date %q: %w", book.ErrInvalidArgument, *date, err)
		}
	}

	b, err := lookup(s, *id)
	if err != nil {
		return false, err
	}
	b.Publish(on)
	fmt.Fprintf(out, "published %s on %s\n", b, b.PublicationDate())
	return true, nil
}

func remove(s *shelf.Shelf, args []string, out io.Writer) (bool, error) {
	fset := flag.NewFlagSet("remove", flag.ContinueOnError)
	id := fset.String("isbn", "", "ISBN of the book")
	if err := fset.Parse(args); err != nil {
		return false, err
	}

	b, err := lookup(s, *id)
	if err != nil {
		return false, err
	}
	if err := s.Catalog().Remove(b); err != nil {
		return false, err
	}
	fmt.Fprintf(out, "removed %s\n", b)
	return true, nil
}

func lookup(s *shelf.Shelf, id string) (*book.Book, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: -isbn is required", book.ErrInvalidArgument)
	}

	found, err := s.Catalog().FindBy(query.Func(func(b *book.Book) bool {
		return b.ISBN() == id
	}))
	if err != nil {
		return nil, err
	}
	for b := range found {
		return b, nil
	}
	return nil, fmt.Errorf("%w: isbn %q", catalog.ErrNotFound, id)
}

func printBook(out io.Writer, b *book.Book) {
	price := "-"
	if !b.Price().IsZero() {
		price = b.Price().StringFixed(2) + " " + b.Currency()
	}
	fmt.Fprintf(out, "%-17s  %-30s  %-30s  %5d  %12s  %s\n",
		b.ISBN(), b.Title(), b.Author(), b.Pages(), price, b.PublicationDate())
}
