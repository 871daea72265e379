package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// SealOpts customizes the creation of an envelope. The zero value produces a
// DefaultVersion envelope with default cost and random salt and nonce.
// Salt and Nonce must be set only to reproduce a known envelope in tests:
// reusing a nonce with the same key breaks the cipher.
type SealOpts struct {
	Version    int
	ScryptCost *ScryptCost
	Argon2Cost *Argon2Cost
	Salt       []byte
	Nonce      []byte
}

func (o SealOpts) validate() error {
	if o.Version != 0 {
		if _, ok := algorithmsByVersion[o.Version]; !ok {
			return fmt.Errorf(
				"%w: unknown version %d", ErrUnsupportedEnvelope, o.Version,
			)
		}
	}
	if o.Salt != nil && len(o.Salt) != saltLen {
		return fmt.Errorf("salt must be exactly %d bytes", saltLen)
	}
	return nil
}

// Seal encrypts plaintext with a key derived from password and returns the
// envelope holding all the parameters required to revert the operation.
func Seal(password, plaintext []byte, opts SealOpts) (*Envelope, error) {
	if len(password) <= 0 {
		return nil, ErrMissingPassword
	}
	if len(plaintext) <= 0 {
		return nil, ErrMissingPlaintext
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	version := opts.Version
	if version == 0 {
		version = DefaultVersion
	}
	cipherAlgo := algorithmsByVersion[version].cipher

	salt := opts.Salt
	if salt == nil {
		salt = make([]byte, saltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	nonce := opts.Nonce
	if nonce == nil {
		nonce = make([]byte, nonceSize(cipherAlgo))
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, fmt.Errorf("failed to generate nonce: %w", err)
		}
	}
	if len(nonce) != nonceSize(cipherAlgo) {
		return nil, fmt.Errorf(
			"nonce must be exactly %d bytes", nonceSize(cipherAlgo),
		)
	}

	env := &Envelope{
		Version: version,
		Kdf:     newKdfParams(version, salt, opts),
		Cipher: CipherParams{
			Algorithm: cipherAlgo,
			Nonce:     nonce,
		},
	}
	if err := checkKdfCost(env.Kdf); err != nil {
		return nil, err
	}

	key, err := deriveKey(password, env.Kdf)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	aead, err := newAEAD(cipherAlgo, key)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, env.header())
	tagStart := len(sealed) - aead.Overhead()
	env.Ciphertext = sealed[:tagStart]
	env.AuthTag = sealed[tagStart:]

	return env, nil
}

// Open reverts Seal. Any authentication failure, whatever its cause, results
// in ErrIncorrectPassword.
// The caller should clear the returned plaintext once done with it.
func Open(password []byte, env *Envelope) ([]byte, error) {
	if len(password) <= 0 {
		return nil, ErrMissingPassword
	}
	if env == nil {
		return nil, fmt.Errorf("%w: missing envelope", ErrUnsupportedEnvelope)
	}
	if err := env.validate(); err != nil {
		log.WithError(err).Debug("envelope: rejected before decryption")
		return nil, err
	}

	key, err := deriveKey(password, env.Kdf)
	if err != nil {
		log.WithError(err).Debug("envelope: key derivation failed")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEnvelope, err)
	}
	defer clear(key)

	aead, err := newAEAD(env.Cipher.Algorithm, key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.AuthTag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := aead.Open(nil, env.Cipher.Nonce, sealed, env.header())
	if err != nil {
		log.Debugf(
			"envelope: v%d authentication failed, wrong password or tampered data",
			env.Version,
		)
		return nil, ErrIncorrectPassword
	}
	return plaintext, nil
}

func newAEAD(algorithm string, key []byte) (cipher.AEAD, error) {
	switch algorithm {
	case CipherAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}
		return cipher.NewGCM(block)
	case CipherXChaCha20Poly1305:
		return chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf(
			"%w: unknown cipher %q", ErrUnsupportedEnvelope, algorithm,
		)
	}
}

func nonceSize(algorithm string) int {
	switch algorithm {
	case CipherAES256GCM:
		return 12
	case CipherXChaCha20Poly1305:
		return chacha20poly1305.NonceSizeX
	default:
		return -1
	}
}
