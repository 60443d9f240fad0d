package alsa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"ftumix/internal/control"
)

// ErrCardNotFound reports that no sound card matched the lookup.
var ErrCardNotFound = errors.New("no matching sound card")

const procCardsPath = "/proc/asound/cards"

// Header lines look like:
//
//	1 [F8R            ]: USB-Audio - Fast Track Ultra 8R
//
// followed by an indented detail line that never matches.
var cardLinePattern = regexp.MustCompile(`^\s*(\d+)\s+\[(\S+)\s*\]:\s*(.+)$`)

// ParseCards reads /proc/asound/cards-formatted text.
func ParseCards(r io.Reader) ([]control.Card, error) {
	var cards []control.Card
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := cardLinePattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		name := m[3]
		// The header carries "driver - card name"; keep the card name.
		if i := strings.Index(name, " - "); i >= 0 {
			name = name[i+3:]
		}
		cards = append(cards, control.Card{
			Index: index,
			ID:    m[2],
			Name:  strings.TrimSpace(name),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan card list: %w", err)
	}
	return cards, nil
}

// Cards lists the sound cards the kernel reports.
func Cards() ([]control.Card, error) {
	f, err := os.Open(procCardsPath)
	if err != nil {
		return nil, fmt.Errorf("list sound cards: %w", err)
	}
	defer f.Close()
	return ParseCards(f)
}

// FindCard returns the first card whose ID equals one of the fragments or
// whose name contains one.
func FindCard(match []string) (control.Card, error) {
	cards, err := Cards()
	if err != nil {
		return control.Card{}, err
	}
	return matchCard(cards, match)
}

// CardByIndex returns the card at a fixed index, for configurations that
// pin the device explicitly.
func CardByIndex(index int) (control.Card, error) {
	cards, err := Cards()
	if err != nil {
		return control.Card{}, err
	}
	for _, card := range cards {
		if card.Index == index {
			return card, nil
		}
	}
	return control.Card{}, fmt.Errorf("card %d: %w", index, ErrCardNotFound)
}

func matchCard(cards []control.Card, match []string) (control.Card, error) {
	for _, card := range cards {
		for _, fragment := range match {
			if fragment == "" {
				continue
			}
			if card.ID == fragment || strings.Contains(card.Name, fragment) {
				return card, nil
			}
		}
	}
	return control.Card{}, fmt.Errorf("%w (looked for %s)", ErrCardNotFound, strings.Join(match, ", "))
}
