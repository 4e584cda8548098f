package importer

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"cardprint-backend/internal/deck"
)

type xmlCard struct {
	ID    string `xml:"id"`
	Slots string `xml:"slots"`
	Name  string `xml:"name"`
}

type xmlOrder struct {
	Fronts   []xmlCard `xml:"fronts>card"`
	Backs    []xmlCard `xml:"backs>card"`
	Cardback string    `xml:"cardback"`
}

// XMLOrder is a parsed print-order file. Image references are Drive URLs.
type XMLOrder struct {
	// Cards holds one card per slot that has a front, in slot order.
	Cards []deck.Card
	// BackSlots maps slot index to the back assigned to it.
	BackSlots map[int]string
	// Cardback is the shared back, or "".
	Cardback string
}

// DriveURL returns the direct image URL of a Drive file id.
func DriveURL(id string) string {
	return "https://lh3.googleusercontent.com/d/" + id + "=w1000"
}

func ParseOrderXML(r io.Reader) (*XMLOrder, error) {
	var doc xmlOrder
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse order xml: %w", err)
	}

	fronts := slotURLs(doc.Fronts)
	backs := slotURLs(doc.Backs)

	out := &XMLOrder{BackSlots: backs}
	if id := strings.TrimSpace(doc.Cardback); id != "" {
		out.Cardback = DriveURL(id)
	}

	slots := make([]int, 0, len(fronts))
	for slot := range fronts {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	for _, slot := range slots {
		out.Cards = append(out.Cards, deck.Card{
			OriginalFront: fronts[slot],
			OriginalBack:  backs[slot],
			TrimMM:        deck.DefaultTrimMM,
			BleedMM:       deck.DefaultBleedMM,
			Finish:        deck.FinishStandard,
			Quantity:      1,
		})
	}
	return out, nil
}

// ApplyBacks sets the back of every existing card whose index has a slot in
// backs. Slots past the end of the deck are ignored. It returns the number
// of cards changed.
func ApplyBacks(d *deck.Deck, backs map[int]string) (int, error) {
	cards := d.Cards()
	changed := 0
	for slot, url := range backs {
		if slot < 0 || slot >= len(cards) {
			continue
		}
		if err := d.SetBack(cards[slot].ID, url, ""); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

func slotURLs(cards []xmlCard) map[int]string {
	out := make(map[int]string)
	for _, c := range cards {
		id := strings.TrimSpace(c.ID)
		if id == "" || strings.TrimSpace(c.Slots) == "" {
			continue
		}
		for _, s := range strings.Split(c.Slots, ",") {
			slot, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				continue
			}
			out[slot] = DriveURL(id)
		}
	}
	return out
}
