package deck

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrCardNotFound    = errors.New("card not found")
	ErrDuplicateCard   = errors.New("card id already in deck")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidFinish   = errors.New("unknown finish")
	ErrMaskNotAllowed  = errors.New("mask requires a silver finish and at least one masking color")
)

type ChangeKind string

const (
	ChangeAdded      ChangeKind = "added"
	ChangeRemoved    ChangeKind = "removed"
	ChangeUpdated    ChangeKind = "updated"
	ChangeGlobalBack ChangeKind = "global_back"
	ChangeReset      ChangeKind = "reset"
)

type Change struct {
	Kind   ChangeKind
	CardID string
}

// Listener is notified after every successful mutation.
type Listener func(Change)

// Deck owns the ordered card list and the global back for one design
// session. Every mutation is a single atomic transition.
type Deck struct {
	mu        sync.RWMutex
	cards     []Card
	back      GlobalBack
	listeners map[int]Listener
	nextID    int
}

func New() *Deck {
	return &Deck{
		back:      DefaultGlobalBack(),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function that removes it.
func (d *Deck) Subscribe(l Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = l
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

func (d *Deck) notify(c Change) {
	d.mu.RLock()
	ls := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		ls = append(ls, l)
	}
	d.mu.RUnlock()
	for _, l := range ls {
		l(c)
	}
}

// AddCard appends c, filling defaults for zero-valued fields, and returns
// its id.
func (d *Deck) AddCard(c Card) (string, error) {
	if c.Quantity == 0 {
		c.Quantity = defaultQuantity
	}
	if c.Quantity < 1 {
		return "", ErrInvalidQuantity
	}
	if c.Finish == "" {
		c.Finish = FinishStandard
	}
	if !c.Finish.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidFinish, c.Finish)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.TrimMM == 0 && c.BleedMM == 0 && !c.HasBleed {
		c.TrimMM, c.BleedMM = DefaultTrimMM, DefaultBleedMM
	}
	if !c.Finish.HasSilver() || len(c.MaskingColors) == 0 {
		c.SilverMask = ""
	}

	d.mu.Lock()
	if d.indexOf(c.ID) >= 0 {
		d.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrDuplicateCard, c.ID)
	}
	d.cards = append(d.cards, c.clone())
	d.mu.Unlock()

	d.notify(Change{Kind: ChangeAdded, CardID: c.ID})
	return c.ID, nil
}

func (d *Deck) RemoveCard(id string) error {
	d.mu.Lock()
	idx := d.indexOf(id)
	if idx < 0 {
		d.mu.Unlock()
		return ErrCardNotFound
	}
	d.cards = append(d.cards[:idx], d.cards[idx+1:]...)
	d.mu.Unlock()

	d.notify(Change{Kind: ChangeRemoved, CardID: id})
	return nil
}

func (d *Deck) Card(id string) (Card, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx := d.indexOf(id)
	if idx < 0 {
		return Card{}, ErrCardNotFound
	}
	return d.cards[idx].clone(), nil
}

// Cards returns a copy of the deck in order.
func (d *Deck) Cards() []Card {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Card, len(d.cards))
	for i, c := range d.cards {
		out[i] = c.clone()
	}
	return out
}

func (d *Deck) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cards)
}

func (d *Deck) SetFront(id, original, processed string) error {
	return d.update(id, func(c *Card) error {
		c.OriginalFront = original
		c.Front = processed
		return nil
	})
}

func (d *Deck) SetBack(id, original, processed string) error {
	return d.update(id, func(c *Card) error {
		c.OriginalBack = original
		c.Back = processed
		return nil
	})
}

func (d *Deck) SetTrimBleed(id string, trimMM, bleedMM float64, hasBleed bool) error {
	return d.update(id, func(c *Card) error {
		c.TrimMM = trimMM
		c.BleedMM = bleedMM
		c.HasBleed = hasBleed
		return nil
	})
}

// SetFinish changes the finish. Leaving a silver finish drops the mask.
func (d *Deck) SetFinish(id string, f Finish) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidFinish, f)
	}
	return d.update(id, func(c *Card) error {
		c.Finish = f
		if !f.HasSilver() {
			c.SilverMask = ""
		}
		return nil
	})
}

func (d *Deck) SetQuantity(id string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return d.update(id, func(c *Card) error {
		c.Quantity = quantity
		return nil
	})
}

// SetMask stores a generated mask together with the colors and tolerance it
// was built from.
func (d *Deck) SetMask(id string, colors []string, tolerance int, mask string) error {
	return d.update(id, func(c *Card) error {
		if !c.Finish.HasSilver() || len(colors) == 0 {
			return ErrMaskNotAllowed
		}
		c.MaskingColors = append([]string(nil), colors...)
		c.MaskingTolerance = tolerance
		c.SilverMask = mask
		return nil
	})
}

func (d *Deck) ClearMask(id string) error {
	return d.update(id, func(c *Card) error {
		c.SilverMask = ""
		c.MaskingColors = nil
		return nil
	})
}

func (d *Deck) SetGlobalBack(g GlobalBack) {
	d.mu.Lock()
	d.back = g
	d.mu.Unlock()
	d.notify(Change{Kind: ChangeGlobalBack})
}

func (d *Deck) GlobalBack() GlobalBack {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.back
}

// Reset drops every card and restores the default global back.
func (d *Deck) Reset() {
	d.mu.Lock()
	d.cards = nil
	d.back = DefaultGlobalBack()
	d.mu.Unlock()
	d.notify(Change{Kind: ChangeReset})
}

func (d *Deck) TotalQuantity() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return TotalQuantity(d.cards)
}

// ExpandQuantities returns the deck as physical unit cards.
func (d *Deck) ExpandQuantities() []Card {
	return ExpandQuantities(d.Cards())
}

func (d *Deck) Quote(country string) Quote {
	cards := d.Cards()
	return CalculateQuote(TotalQuantity(cards), cards, country)
}

func (d *Deck) update(id string, fn func(*Card) error) error {
	d.mu.Lock()
	idx := d.indexOf(id)
	if idx < 0 {
		d.mu.Unlock()
		return ErrCardNotFound
	}
	c := d.cards[idx].clone()
	if err := fn(&c); err != nil {
		d.mu.Unlock()
		return err
	}
	d.cards[idx] = c
	d.mu.Unlock()

	d.notify(Change{Kind: ChangeUpdated, CardID: id})
	return nil
}

func (d *Deck) indexOf(id string) int {
	for i := range d.cards {
		if d.cards[i].ID == id {
			return i
		}
	}
	return -1
}

func TotalQuantity(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += quantityOf(c)
	}
	return total
}

// ExpandQuantities turns every card into quantity unit cards with ids
// "<id>_<n>".
func ExpandQuantities(cards []Card) []Card {
	out := make([]Card, 0, TotalQuantity(cards))
	for _, c := range cards {
		for i := 0; i < quantityOf(c); i++ {
			unit := c.clone()
			unit.ID = fmt.Sprintf("%s_%d", c.ID, i)
			unit.Quantity = 1
			out = append(out, unit)
		}
	}
	return out
}

func quantityOf(c Card) int {
	if c.Quantity < 1 {
		return defaultQuantity
	}
	return c.Quantity
}
