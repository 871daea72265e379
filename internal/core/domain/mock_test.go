package domain_test

import (
	"github.com/stretchr/testify/mock"
)

// AddressDeriver
type mockAddressDeriver struct {
	mock.Mock
}

func (m *mockAddressDeriver) DeriveAddress(mnemonic []string) (string, error) {
	args := m.Called(mnemonic)
	return args.String(0), args.Error(1)
}

// Shuffler
type reverseShuffler struct{}

func (reverseShuffler) Shuffle(words []string) ([]string, error) {
	reversed := make([]string, 0, len(words))
	for i := len(words) - 1; i >= 0; i-- {
		reversed = append(reversed, words[i])
	}
	return reversed, nil
}

type identityShuffler struct{}

func (identityShuffler) Shuffle(words []string) ([]string, error) {
	return append([]string{}, words...), nil
}
