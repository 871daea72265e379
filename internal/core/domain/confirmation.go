package domain

import (
	"fmt"
	"strings"

	"github.com/vulpemventures/keeper/pkg/wallet/mnemonic"
)

type ConfirmationStatus int

const (
	ConfirmationPlacing ConfirmationStatus = iota
	ConfirmationRetry
	ConfirmationCommitted
)

func (s ConfirmationStatus) String() string {
	switch s {
	case ConfirmationPlacing:
		return "placing"
	case ConfirmationRetry:
		return "retry"
	case ConfirmationCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// ConfirmationEvent is one of PlaceWord, RemoveWord, ValidateOrder and
// ResetConfirmation.
type ConfirmationEvent interface {
	isConfirmationEvent()
}

// PlaceWord moves Pool[PoolIndex] into the first empty slot. Word must match
// the pool entry, otherwise the event is ignored.
type PlaceWord struct {
	Word      string
	PoolIndex int
}

// RemoveWord moves the word of the given slot back to the end of the pool.
type RemoveWord struct {
	SlotIndex int
}

type ValidateOrder struct{}

type ResetConfirmation struct{}

func (PlaceWord) isConfirmationEvent()         {}
func (RemoveWord) isConfirmationEvent()        {}
func (ValidateOrder) isConfirmationEvent()     {}
func (ResetConfirmation) isConfirmationEvent() {}

// ConfirmationState is the state of the challenge where the user rebuilds
// the mnemonic by placing the shuffled words in order.
// Empty slots are empty strings.
// The words of Pool plus the non empty Slots are always a permutation of
// SourceWords.
type ConfirmationState struct {
	SourceWords []string
	Pool        []string
	Slots       []string
	Status      ConfirmationStatus
	Attempts    int
}

// NewConfirmationState returns the initial state for the given mnemonic: all
// words shuffled in the pool and all slots empty.
func NewConfirmationState(
	words []string, shuffler IShuffler,
) (ConfirmationState, error) {
	if err := mnemonic.ValidateLength(words); err != nil {
		return ConfirmationState{}, err
	}
	// Empty strings mark empty slots, they can't be words.
	for _, w := range words {
		if strings.TrimSpace(w) == "" {
			return ConfirmationState{}, ErrInvalidMnemonic
		}
	}
	return initConfirmationState(words, shuffler)
}

func initConfirmationState(
	words []string, shuffler IShuffler,
) (ConfirmationState, error) {
	pool, err := shuffler.Shuffle(words)
	if err != nil {
		return ConfirmationState{}, fmt.Errorf("failed to shuffle words: %w", err)
	}
	if len(pool) != len(words) {
		return ConfirmationState{}, fmt.Errorf(
			"shuffler returned %d words, expected %d", len(pool), len(words),
		)
	}

	return ConfirmationState{
		SourceWords: append([]string{}, words...),
		Pool:        pool,
		Slots:       make([]string, len(words)),
		Status:      ConfirmationPlacing,
	}, nil
}

// IsComplete returns whether all slots are filled.
func (s ConfirmationState) IsComplete() bool {
	return s.firstEmptySlot() < 0
}

// Placed returns the words of the filled slots, in order.
func (s ConfirmationState) Placed() []string {
	placed := make([]string, 0, len(s.Slots))
	for _, w := range s.Slots {
		if w != "" {
			placed = append(placed, w)
		}
	}
	return placed
}

func (s ConfirmationState) firstEmptySlot() int {
	for i, w := range s.Slots {
		if w == "" {
			return i
		}
	}
	return -1
}

func (s ConfirmationState) clone() ConfirmationState {
	return ConfirmationState{
		SourceWords: append([]string{}, s.SourceWords...),
		Pool:        append([]string{}, s.Pool...),
		Slots:       append([]string{}, s.Slots...),
		Status:      s.Status,
		Attempts:    s.Attempts,
	}
}

func (s ConfirmationState) matchesSource() bool {
	if len(s.Slots) != len(s.SourceWords) {
		return false
	}
	for i, w := range s.SourceWords {
		if s.Slots[i] != w {
			return false
		}
	}
	return true
}

// Transition returns the state resulting from applying the event to the
// given one, which is never modified.
// Invalid placements and removals are ignored and return an unchanged state.
// A failed validation returns both ErrConfirmationMismatch and the new
// reshuffled state with status ConfirmationRetry.
func Transition(
	state ConfirmationState, event ConfirmationEvent, shuffler IShuffler,
) (ConfirmationState, error) {
	next := state.clone()
	if state.Status == ConfirmationCommitted {
		return next, ErrConfirmationCommitted
	}

	switch ev := event.(type) {
	case PlaceWord:
		idx := ev.PoolIndex
		if idx < 0 || idx >= len(next.Pool) || next.Pool[idx] != ev.Word {
			return next, nil
		}
		slot := next.firstEmptySlot()
		if slot < 0 {
			return next, nil
		}
		next.Slots[slot] = next.Pool[idx]
		next.Pool = append(next.Pool[:idx], next.Pool[idx+1:]...)
		next.Status = ConfirmationPlacing
		return next, nil

	case RemoveWord:
		idx := ev.SlotIndex
		if idx < 0 || idx >= len(next.Slots) || next.Slots[idx] == "" {
			return next, nil
		}
		next.Pool = append(next.Pool, next.Slots[idx])
		next.Slots[idx] = ""
		next.Status = ConfirmationPlacing
		return next, nil

	case ValidateOrder:
		if !next.IsComplete() {
			return next, ErrConfirmationIncomplete
		}
		if next.matchesSource() {
			next.Status = ConfirmationCommitted
			return next, nil
		}

		retry, err := initConfirmationState(state.SourceWords, shuffler)
		if err != nil {
			return next, err
		}
		retry.Status = ConfirmationRetry
		retry.Attempts = state.Attempts + 1
		return retry, ErrConfirmationMismatch

	case ResetConfirmation:
		reset, err := initConfirmationState(state.SourceWords, shuffler)
		if err != nil {
			return next, err
		}
		reset.Attempts = state.Attempts
		return reset, nil

	default:
		return next, fmt.Errorf("unknown confirmation event %T", event)
	}
}

// MnemonicConfirmation drives a ConfirmationState through its transitions.
// It is not safe for concurrent use.
type MnemonicConfirmation struct {
	address  string
	state    ConfirmationState
	shuffler IShuffler
}

// NewMnemonicConfirmation starts the confirmation of the mnemonic of the
// wallet with the given address.
func NewMnemonicConfirmation(
	address string, words []string, shuffler IShuffler,
) (*MnemonicConfirmation, error) {
	if address == "" {
		return nil, ErrMissingAddress
	}
	state, err := NewConfirmationState(words, shuffler)
	if err != nil {
		return nil, err
	}
	return &MnemonicConfirmation{address, state, shuffler}, nil
}

func (c *MnemonicConfirmation) Address() string {
	return c.address
}

// State returns a copy of the current state.
func (c *MnemonicConfirmation) State() ConfirmationState {
	return c.state.clone()
}

func (c *MnemonicConfirmation) IsCommitted() bool {
	return c.state.Status == ConfirmationCommitted
}

func (c *MnemonicConfirmation) Place(word string, poolIndex int) error {
	return c.apply(PlaceWord{word, poolIndex})
}

func (c *MnemonicConfirmation) Remove(slotIndex int) error {
	return c.apply(RemoveWord{slotIndex})
}

// Validate commits the confirmation if the words are in the right order.
// Otherwise, ErrConfirmationMismatch is returned and the challenge restarts
// with the words reshuffled.
func (c *MnemonicConfirmation) Validate() error {
	return c.apply(ValidateOrder{})
}

func (c *MnemonicConfirmation) Reset() error {
	return c.apply(ResetConfirmation{})
}

// ConfirmedPhrase returns the confirmed words, only once committed.
func (c *MnemonicConfirmation) ConfirmedPhrase() ([]string, error) {
	if !c.IsCommitted() {
		return nil, ErrConfirmationIncomplete
	}
	return append([]string{}, c.state.Slots...), nil
}

func (c *MnemonicConfirmation) apply(event ConfirmationEvent) error {
	next, err := Transition(c.state, event, c.shuffler)
	if err != nil && err != ErrConfirmationMismatch {
		return err
	}
	c.state = next
	return err
}
