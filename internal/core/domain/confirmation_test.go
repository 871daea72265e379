package domain_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"pgregory.net/rapid"
)

func TestNewConfirmationState(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		for _, words := range [][]string{mnemonic, shortMnemonic} {
			state, err := domain.NewConfirmationState(words, reverseShuffler{})
			require.NoError(t, err)
			require.Equal(t, words, state.SourceWords)
			require.Len(t, state.Slots, len(words))
			require.Empty(t, state.Placed())
			require.False(t, state.IsComplete())
			require.Equal(t, domain.ConfirmationPlacing, state.Status)
			require.Zero(t, state.Attempts)
			requirePermutation(t, words, state)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		for _, n := range []int{0, 1, 11, 13, 23} {
			_, err := domain.NewConfirmationState(mnemonic[:n], reverseShuffler{})
			require.ErrorIs(t, err, domain.ErrInvalidPhraseLength)
		}
	})

	t.Run("blank word", func(t *testing.T) {
		t.Parallel()

		for _, blank := range []string{"", " ", "\t"} {
			words := append([]string{blank}, shortMnemonic[1:]...)
			state, err := domain.NewConfirmationState(words, identityShuffler{})
			require.ErrorIs(t, err, domain.ErrInvalidMnemonic)
			require.Empty(t, state.Pool)
		}
	})
}

func TestConfirmationCorrectOrder(t *testing.T) {
	t.Parallel()

	state, err := domain.NewConfirmationState(mnemonic, reverseShuffler{})
	require.NoError(t, err)

	for _, word := range mnemonic {
		state = place(t, state, word)
		requirePermutation(t, mnemonic, state)
	}
	require.True(t, state.IsComplete())
	require.Empty(t, state.Pool)

	state, err = domain.Transition(state, domain.ValidateOrder{}, reverseShuffler{})
	require.NoError(t, err)
	require.Equal(t, domain.ConfirmationCommitted, state.Status)
	require.Equal(t, mnemonic, state.Slots)

	for _, ev := range []domain.ConfirmationEvent{
		domain.PlaceWord{}, domain.RemoveWord{}, domain.ValidateOrder{},
		domain.ResetConfirmation{},
	} {
		next, err := domain.Transition(state, ev, reverseShuffler{})
		require.ErrorIs(t, err, domain.ErrConfirmationCommitted)
		require.Equal(t, state, next)
	}
}

func TestConfirmationWrongOrder(t *testing.T) {
	t.Parallel()

	state, err := domain.NewConfirmationState(shortMnemonic, reverseShuffler{})
	require.NoError(t, err)

	// Pool is reversed, placing always the first word fills the slots in
	// the reverse order.
	for range shortMnemonic {
		state, err = domain.Transition(
			state, domain.PlaceWord{Word: state.Pool[0], PoolIndex: 0},
			reverseShuffler{},
		)
		require.NoError(t, err)
	}
	require.True(t, state.IsComplete())

	state, err = domain.Transition(state, domain.ValidateOrder{}, reverseShuffler{})
	require.ErrorIs(t, err, domain.ErrConfirmationMismatch)
	require.Equal(t, domain.ConfirmationRetry, state.Status)
	require.Equal(t, 1, state.Attempts)
	require.Empty(t, state.Placed())
	require.Len(t, state.Pool, len(shortMnemonic))
	requirePermutation(t, shortMnemonic, state)

	state = place(t, state, shortMnemonic[0])
	require.Equal(t, domain.ConfirmationPlacing, state.Status)
	require.Equal(t, 1, state.Attempts)
}

func TestConfirmationIncomplete(t *testing.T) {
	t.Parallel()

	state, err := domain.NewConfirmationState(shortMnemonic, reverseShuffler{})
	require.NoError(t, err)
	state = place(t, state, shortMnemonic[0])

	next, err := domain.Transition(state, domain.ValidateOrder{}, reverseShuffler{})
	require.ErrorIs(t, err, domain.ErrConfirmationIncomplete)
	require.Equal(t, state, next)
}

func TestConfirmationIgnoredEvents(t *testing.T) {
	t.Parallel()

	state, err := domain.NewConfirmationState(shortMnemonic, identityShuffler{})
	require.NoError(t, err)
	state = place(t, state, shortMnemonic[0])

	tests := []struct {
		name  string
		event domain.ConfirmationEvent
	}{
		{"negative pool index", domain.PlaceWord{Word: state.Pool[0], PoolIndex: -1}},
		{"pool index out of range", domain.PlaceWord{Word: state.Pool[0], PoolIndex: len(state.Pool)}},
		{"word not at index", domain.PlaceWord{Word: "zoo", PoolIndex: 0}},
		{"negative slot index", domain.RemoveWord{SlotIndex: -1}},
		{"slot index out of range", domain.RemoveWord{SlotIndex: len(state.Slots)}},
		{"empty slot", domain.RemoveWord{SlotIndex: 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			next, err := domain.Transition(state, tt.event, identityShuffler{})
			require.NoError(t, err)
			require.Equal(t, state, next)
		})
	}
}

func TestConfirmationRemoveAndReset(t *testing.T) {
	t.Parallel()

	state, err := domain.NewConfirmationState(shortMnemonic, identityShuffler{})
	require.NoError(t, err)
	state = place(t, state, shortMnemonic[0])
	state = place(t, state, shortMnemonic[1])

	state, err = domain.Transition(state, domain.RemoveWord{SlotIndex: 0}, identityShuffler{})
	require.NoError(t, err)
	require.Equal(t, "", state.Slots[0])
	require.Equal(t, shortMnemonic[1], state.Slots[1])
	require.Equal(t, shortMnemonic[0], state.Pool[len(state.Pool)-1])
	requirePermutation(t, shortMnemonic, state)

	// The next placement fills the first empty slot.
	state = place(t, state, shortMnemonic[2])
	require.Equal(t, shortMnemonic[2], state.Slots[0])

	state, err = domain.Transition(state, domain.ResetConfirmation{}, identityShuffler{})
	require.NoError(t, err)
	require.Empty(t, state.Placed())
	require.Equal(t, shortMnemonic, state.Pool)
}

func TestTransitionDoesNotMutate(t *testing.T) {
	t.Parallel()

	state, err := domain.NewConfirmationState(shortMnemonic, identityShuffler{})
	require.NoError(t, err)
	snapshot := cloneState(state)

	_, err = domain.Transition(
		state, domain.PlaceWord{Word: state.Pool[3], PoolIndex: 3}, identityShuffler{},
	)
	require.NoError(t, err)
	require.Equal(t, snapshot, state)
}

func TestMnemonicConfirmation(t *testing.T) {
	t.Parallel()

	c, err := domain.NewMnemonicConfirmation(address, shortMnemonic, reverseShuffler{})
	require.NoError(t, err)
	require.Equal(t, address, c.Address())

	_, err = c.ConfirmedPhrase()
	require.ErrorIs(t, err, domain.ErrConfirmationIncomplete)
	require.ErrorIs(t, c.Validate(), domain.ErrConfirmationIncomplete)

	// First attempt in the wrong order.
	for range shortMnemonic {
		require.NoError(t, c.Place(c.State().Pool[0], 0))
	}
	require.ErrorIs(t, c.Validate(), domain.ErrConfirmationMismatch)
	require.Equal(t, domain.ConfirmationRetry, c.State().Status)
	require.Equal(t, 1, c.State().Attempts)

	// Second attempt in the right order.
	for _, word := range shortMnemonic {
		pool := c.State().Pool
		require.NoError(t, c.Place(word, indexOf(pool, word)))
	}
	require.NoError(t, c.Validate())
	require.True(t, c.IsCommitted())

	phrase, err := c.ConfirmedPhrase()
	require.NoError(t, err)
	require.Equal(t, shortMnemonic, phrase)

	require.ErrorIs(t, c.Remove(0), domain.ErrConfirmationCommitted)
	require.ErrorIs(t, c.Reset(), domain.ErrConfirmationCommitted)

	_, err = domain.NewMnemonicConfirmation("", shortMnemonic, reverseShuffler{})
	require.ErrorIs(t, err, domain.ErrMissingAddress)
}

func TestCryptoShuffler(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(
			rapid.SampledFrom(mnemonic), 0, 24,
		).Draw(t, "words")
		input := append([]string{}, words...)

		shuffled, err := domain.NewCryptoShuffler().Shuffle(words)
		if err != nil {
			t.Fatalf("shuffle: %s", err)
		}
		if !equalStrings(input, words) {
			t.Fatalf("input was modified")
		}
		if !equalStrings(sorted(words), sorted(shuffled)) {
			t.Fatalf("shuffled words are not a permutation of the input")
		}
	})
}

func TestConfirmationInvariant(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		words := mnemonic
		if rapid.Bool().Draw(t, "short") {
			words = shortMnemonic
		}
		shuffler := domain.NewCryptoShuffler()

		state, err := domain.NewConfirmationState(words, shuffler)
		if err != nil {
			t.Fatalf("init: %s", err)
		}

		numOfEvents := rapid.IntRange(1, 100).Draw(t, "numOfEvents")
		for i := 0; i < numOfEvents; i++ {
			var event domain.ConfirmationEvent
			switch rapid.IntRange(0, 9).Draw(t, "kind") {
			case 0:
				event = domain.ValidateOrder{}
			case 1:
				event = domain.ResetConfirmation{}
			case 2, 3, 4:
				event = domain.RemoveWord{
					SlotIndex: rapid.IntRange(-1, len(words)).Draw(t, "slot"),
				}
			default:
				idx := rapid.IntRange(-1, len(words)).Draw(t, "pool")
				word := rapid.SampledFrom(words).Draw(t, "word")
				if idx >= 0 && idx < len(state.Pool) && rapid.Bool().Draw(t, "match") {
					word = state.Pool[idx]
				}
				event = domain.PlaceWord{Word: word, PoolIndex: idx}
			}

			snapshot := cloneState(state)
			next, err := domain.Transition(state, event, shuffler)
			if !equalState(snapshot, state) {
				t.Fatalf("transition modified its input")
			}
			if err != nil &&
				err != domain.ErrConfirmationMismatch &&
				err != domain.ErrConfirmationIncomplete &&
				err != domain.ErrConfirmationCommitted {
				t.Fatalf("unexpected error: %s", err)
			}
			state = next

			pool := append(append([]string{}, state.Pool...), state.Placed()...)
			if !equalStrings(sorted(words), sorted(pool)) {
				t.Fatalf("pool and slots are not a permutation of the mnemonic")
			}
			if len(state.Slots) != len(words) {
				t.Fatalf("unexpected number of slots %d", len(state.Slots))
			}
			if state.Status == domain.ConfirmationCommitted &&
				!equalStrings(words, state.Slots) {
				t.Fatalf("committed in the wrong order")
			}
		}
	})
}

func place(
	t *testing.T, state domain.ConfirmationState, word string,
) domain.ConfirmationState {
	idx := indexOf(state.Pool, word)
	require.GreaterOrEqual(t, idx, 0)

	next, err := domain.Transition(
		state, domain.PlaceWord{Word: word, PoolIndex: idx}, reverseShuffler{},
	)
	require.NoError(t, err)
	require.Len(t, next.Placed(), len(state.Placed())+1)
	return next
}

func requirePermutation(
	t *testing.T, words []string, state domain.ConfirmationState,
) {
	all := append(append([]string{}, state.Pool...), state.Placed()...)
	require.Equal(t, sorted(words), sorted(all))
}

func indexOf(list []string, word string) int {
	for i, w := range list {
		if w == word {
			return i
		}
	}
	return -1
}

func sorted(list []string) []string {
	s := append([]string{}, list...)
	sort.Strings(s)
	return s
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneState(s domain.ConfirmationState) domain.ConfirmationState {
	return domain.ConfirmationState{
		SourceWords: append([]string{}, s.SourceWords...),
		Pool:        append([]string{}, s.Pool...),
		Slots:       append([]string{}, s.Slots...),
		Status:      s.Status,
		Attempts:    s.Attempts,
	}
}

func equalState(a, b domain.ConfirmationState) bool {
	return equalStrings(a.SourceWords, b.SourceWords) &&
		equalStrings(a.Pool, b.Pool) &&
		equalStrings(a.Slots, b.Slots) &&
		a.Status == b.Status && a.Attempts == b.Attempts
}
