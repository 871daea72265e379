package mnemonic

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidEntropySize  = fmt.Errorf("entropy size must be 128 or 256")
	ErrInvalidPhraseLength = fmt.Errorf("mnemonic must be made of 12 or 24 words")
	ErrInvalidMnemonic     = fmt.Errorf("invalid mnemonic")

	entropySizeByLen = map[int]int{
		12: 128,
		24: 256,
	}
)

type NewMnemonicArgs struct {
	EntropySize uint32
}

func (a NewMnemonicArgs) validate() error {
	if a.EntropySize > 0 {
		if a.EntropySize != 128 && a.EntropySize != 256 {
			return ErrInvalidEntropySize
		}
	}
	return nil
}

// NewMnemonic returns a new mnemonic as a list of words:
//   - EntropySize: 256 -> 24-words mnemonic.
//   - EntropySize: 128 -> 12-words mnemonic.
func NewMnemonic(args NewMnemonicArgs) ([]string, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	if args.EntropySize == 0 {
		args.EntropySize = 256
	}

	entropy, err := bip39.NewEntropy(int(args.EntropySize))
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return strings.Split(mnemonic, " "), nil
}

// EntropySizeForLength returns the entropy size producing a mnemonic of the
// given number of words.
func EntropySizeForLength(numOfWords int) (uint32, error) {
	size, ok := entropySizeByLen[numOfWords]
	if !ok {
		return 0, ErrInvalidPhraseLength
	}
	return uint32(size), nil
}

// Normalize returns the canonical form of the given words: NFKD, lower case,
// no surrounding or repeated whitespace. Words containing inner spaces are
// split.
func Normalize(words []string) []string {
	phrase := norm.NFKD.String(strings.Join(words, " "))
	return strings.Fields(strings.ToLower(phrase))
}

// ValidateLength makes sure the mnemonic is made of either 12 or 24 words.
func ValidateLength(words []string) error {
	if _, ok := entropySizeByLen[len(words)]; !ok {
		return ErrInvalidPhraseLength
	}
	return nil
}

// Validate checks the length, the words and the checksum of the normalized
// mnemonic.
func Validate(words []string) error {
	if err := ValidateLength(words); err != nil {
		return err
	}
	if !bip39.IsMnemonicValid(strings.Join(words, " ")) {
		return ErrInvalidMnemonic
	}
	return nil
}

// Seed returns the BIP-39 seed of the mnemonic, without passphrase.
// The caller should clear the returned slice once done with it.
func Seed(words []string) ([]byte, error) {
	if err := Validate(words); err != nil {
		return nil, err
	}
	return bip39.NewSeed(strings.Join(words, " "), ""), nil
}
