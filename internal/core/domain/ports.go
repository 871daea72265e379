package domain

// IAddressDeriver defines the method to derive the identifying address of a
// wallet from its normalized mnemonic.
type IAddressDeriver interface {
	DeriveAddress(mnemonic []string) (string, error)
}

// IShuffler defines the method to return a random permutation of a list of
// words. The input must not be modified.
type IShuffler interface {
	Shuffle(words []string) ([]string, error)
}
