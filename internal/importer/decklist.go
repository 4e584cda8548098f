package importer

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"cardprint-backend/internal/catalog"
	"cardprint-backend/internal/deck"
)

var (
	ErrNoLines = errors.New("no valid lines found")

	setLinePattern = regexp.MustCompile(`^(\d+)\s+(.+?)\s+\(([\w\d]+)\)\s+([\w\d]+)\s*$`)
	qtyLinePattern = regexp.MustCompile(`^(\d+)\s*[xX]?\s+(.*)`)
)

// Request is one parsed decklist line.
type Request struct {
	Qty        int
	Identifier catalog.Identifier
	Line       string
}

// Catalog resolves identifiers to printings.
type Catalog interface {
	Collection(ctx context.Context, identifiers []catalog.Identifier) ([]catalog.Card, error)
}

// ParseDecklist accepts "4 Name (SET) 123", "4x Name", "4 Name" and bare
// "Name" lines. Blank lines are skipped.
func ParseDecklist(text string) []Request {
	var reqs []Request
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := setLinePattern.FindStringSubmatch(line); m != nil {
			reqs = append(reqs, Request{
				Qty: atoi(m[1]),
				Identifier: catalog.Identifier{
					Set:             strings.ToLower(m[3]),
					CollectorNumber: m[4],
				},
				Line: line,
			})
			continue
		}
		if m := qtyLinePattern.FindStringSubmatch(line); m != nil {
			reqs = append(reqs, Request{Qty: atoi(m[1]), Identifier: catalog.Identifier{Name: m[2]}, Line: line})
			continue
		}
		reqs = append(reqs, Request{Qty: 1, Identifier: catalog.Identifier{Name: line}, Line: line})
	}
	return reqs
}

// UniqueIdentifiers returns each distinct identifier once, in first-seen
// order.
func UniqueIdentifiers(reqs []Request) []catalog.Identifier {
	seen := make(map[catalog.Identifier]bool, len(reqs))
	var out []catalog.Identifier
	for _, r := range reqs {
		if !seen[r.Identifier] {
			seen[r.Identifier] = true
			out = append(out, r.Identifier)
		}
	}
	return out
}

// Match finds the printing for r among found cards. Set lines match exactly
// on set and collector number; name lines match by case-insensitive
// substring.
func Match(r Request, found []catalog.Card) (catalog.Card, bool) {
	id := r.Identifier
	for _, c := range found {
		switch {
		case id.Set != "" && id.CollectorNumber != "":
			if strings.EqualFold(c.Set, id.Set) && c.CollectorNumber == id.CollectorNumber {
				return c, true
			}
		case id.Name != "":
			if c.Name != "" && strings.Contains(strings.ToLower(c.Name), strings.ToLower(id.Name)) {
				return c, true
			}
		}
	}
	return catalog.Card{}, false
}

type Result struct {
	Cards  []deck.Card
	Failed []Request
}

// ImportDecklist parses text, looks every entry up in the catalog and builds
// one grouped card per line. Lines without a printing or image are returned
// in Failed.
func ImportDecklist(ctx context.Context, cat Catalog, text string) (*Result, error) {
	reqs := ParseDecklist(text)
	if len(reqs) == 0 {
		return nil, ErrNoLines
	}

	found, err := cat.Collection(ctx, UniqueIdentifiers(reqs))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, r := range reqs {
		printing, ok := Match(r, found)
		front, back := printing.Images()
		if !ok || front == "" {
			res.Failed = append(res.Failed, r)
			continue
		}
		res.Cards = append(res.Cards, deck.Card{
			OriginalFront: front,
			OriginalBack:  back,
			TrimMM:        deck.DefaultTrimMM,
			BleedMM:       deck.DefaultBleedMM,
			PrintsURI:     printing.PrintsSearchURI,
			Finish:        deck.FinishStandard,
			Quantity:      r.Qty,
		})
	}
	return res, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
