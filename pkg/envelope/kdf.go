package envelope

import (
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
)

const (
	maxScryptN       = 1 << 20
	maxScryptRP      = 1 << 30
	maxScryptMemory  = 1 << 30 // bytes, same as argon2
	maxArgon2Time    = 16
	maxArgon2Memory  = 1 << 20 // KiB, ie. 1 GiB
	maxArgon2Threads = 64
)

var (
	// DefaultScryptCost is the cost used for legacy v1 envelopes.
	DefaultScryptCost = ScryptCost{N: 1 << 17, R: 8, P: 1}
	// DefaultArgon2Cost is the cost used for v2 envelopes. 64 MiB keeps the
	// derivation within the memory budget of low-end mobile devices.
	DefaultArgon2Cost = Argon2Cost{Time: 3, Memory: 64 * 1024, Threads: 4}
)

// ScryptCost holds the scrypt cost parameters.
type ScryptCost struct {
	N uint64
	R uint32
	P uint32
}

// Argon2Cost holds the argon2id cost parameters. Memory is in KiB.
type Argon2Cost struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

func deriveKey(password []byte, params KdfParams) ([]byte, error) {
	switch params.Algorithm {
	case KdfScrypt:
		return scrypt.Key(
			password, params.Salt,
			int(params.N), int(params.R), int(params.P), int(params.KeyLen),
		)
	case KdfArgon2id:
		return argon2.IDKey(
			password, params.Salt,
			params.Time, params.Memory, params.Threads, params.KeyLen,
		), nil
	default:
		return nil, fmt.Errorf(
			"%w: unknown kdf %q", ErrUnsupportedEnvelope, params.Algorithm,
		)
	}
}

// checkKdfCost makes sure the cost parameters of an untrusted envelope are
// sane before spending any cpu or memory on them.
func checkKdfCost(params KdfParams) error {
	switch params.Algorithm {
	case KdfScrypt:
		n := params.N
		if n <= 1 || n > maxScryptN || n&(n-1) != 0 {
			return fmt.Errorf("%w: invalid scrypt N", ErrUnsupportedEnvelope)
		}
		if params.R == 0 || params.P == 0 ||
			uint64(params.R)*uint64(params.P) >= maxScryptRP {
			return fmt.Errorf("%w: invalid scrypt r/p", ErrUnsupportedEnvelope)
		}
		// scrypt allocates 128*N*r bytes for V plus 128*r*p for B.
		r, p := uint64(params.R), uint64(params.P)
		if 128*r*n > maxScryptMemory || 128*r*p > maxScryptMemory {
			return fmt.Errorf(
				"%w: scrypt memory cost too high", ErrUnsupportedEnvelope,
			)
		}
	case KdfArgon2id:
		if params.Time == 0 || params.Time > maxArgon2Time {
			return fmt.Errorf("%w: invalid argon2 time", ErrUnsupportedEnvelope)
		}
		if params.Threads == 0 || params.Threads > maxArgon2Threads {
			return fmt.Errorf("%w: invalid argon2 threads", ErrUnsupportedEnvelope)
		}
		if params.Memory < 8*uint32(params.Threads) ||
			params.Memory > maxArgon2Memory {
			return fmt.Errorf("%w: invalid argon2 memory", ErrUnsupportedEnvelope)
		}
	default:
		return fmt.Errorf(
			"%w: unknown kdf %q", ErrUnsupportedEnvelope, params.Algorithm,
		)
	}
	return nil
}

func newKdfParams(version int, salt []byte, opts SealOpts) KdfParams {
	if version == VersionScryptAESGCM {
		cost := DefaultScryptCost
		if opts.ScryptCost != nil {
			cost = *opts.ScryptCost
		}
		return KdfParams{
			Algorithm: KdfScrypt,
			Salt:      salt,
			KeyLen:    keyLen,
			N:         cost.N,
			R:         cost.R,
			P:         cost.P,
		}
	}

	cost := DefaultArgon2Cost
	if opts.Argon2Cost != nil {
		cost = *opts.Argon2Cost
	}
	return KdfParams{
		Algorithm: KdfArgon2id,
		Salt:      salt,
		KeyLen:    keyLen,
		Time:      cost.Time,
		Memory:    cost.Memory,
		Threads:   cost.Threads,
	}
}
