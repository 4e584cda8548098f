package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cardprint-backend/internal/deck"
)

// deckFile is the on-disk form of a deck shared by every command.
type deckFile struct {
	Cards      []deck.Card     `json:"cards"`
	GlobalBack deck.GlobalBack `json:"globalBack"`
}

func readDeckFile(path string) (*deckFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck: %w", err)
	}
	df := deckFile{GlobalBack: deck.DefaultGlobalBack()}
	if err := json.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("failed to parse deck: %w", err)
	}
	return &df, nil
}

// load replays the file into a Deck so that defaults and validation apply.
func (df *deckFile) load() (*deck.Deck, error) {
	d := deck.New()
	for i, c := range df.Cards {
		if _, err := d.AddCard(c); err != nil {
			return nil, fmt.Errorf("card %d: %w", i+1, err)
		}
	}
	d.SetGlobalBack(df.GlobalBack)
	return d, nil
}

func deckFileFrom(d *deck.Deck) *deckFile {
	return &deckFile{Cards: d.Cards(), GlobalBack: d.GlobalBack()}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output opens path for writing, or stdout when path is empty or "-".
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
