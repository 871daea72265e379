package domain

import (
	"crypto/rand"
	"math/big"
)

// CryptoShuffler shuffles words with Fisher-Yates, drawing from crypto/rand.
type CryptoShuffler struct{}

func NewCryptoShuffler() IShuffler {
	return CryptoShuffler{}
}

func (CryptoShuffler) Shuffle(words []string) ([]string, error) {
	shuffled := append([]string{}, words...)
	for i := len(shuffled) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, err
		}
		j := int(n.Int64())
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled, nil
}
