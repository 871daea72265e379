package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// VersionScryptAESGCM is the legacy format: scrypt key derivation and
	// AES-256-GCM encryption.
	VersionScryptAESGCM = 1
	// VersionArgon2XChaCha is the current format: argon2id key derivation and
	// XChaCha20-Poly1305 encryption.
	VersionArgon2XChaCha = 2

	// DefaultVersion is the version used for new envelopes when not
	// explicitly requested.
	DefaultVersion = VersionArgon2XChaCha

	KdfScrypt   = "scrypt"
	KdfArgon2id = "argon2id"

	CipherAES256GCM         = "aes-256-gcm"
	CipherXChaCha20Poly1305 = "xchacha20-poly1305"

	saltLen = 16
	keyLen  = 32
	tagLen  = 16
)

var (
	// ErrIncorrectPassword is returned whenever authenticated decryption
	// fails. It deliberately covers both a wrong password and any kind of
	// tampering with the envelope.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrUnsupportedEnvelope is returned for unknown versions, algorithms or
	// malformed envelopes.
	ErrUnsupportedEnvelope = errors.New("unsupported envelope")
	ErrMissingPassword     = errors.New("missing password")
	ErrMissingPlaintext    = errors.New("missing plaintext")

	algorithmsByVersion = map[int]struct {
		kdf    string
		cipher string
	}{
		VersionScryptAESGCM:  {KdfScrypt, CipherAES256GCM},
		VersionArgon2XChaCha: {KdfArgon2id, CipherXChaCha20Poly1305},
	}
)

// KdfParams holds everything needed to re-derive the symmetric key from the
// password. Only the fields related to Algorithm are set.
type KdfParams struct {
	Algorithm string `json:"algorithm"`
	Salt      []byte `json:"salt"`
	KeyLen    uint32 `json:"keyLen"`

	// scrypt
	N uint64 `json:"n,omitempty"`
	R uint32 `json:"r,omitempty"`
	P uint32 `json:"p,omitempty"`

	// argon2id
	Time    uint32 `json:"time,omitempty"`
	Memory  uint32 `json:"memory,omitempty"`
	Threads uint8  `json:"threads,omitempty"`
}

// CipherParams holds the parameters of the authenticated cipher.
type CipherParams struct {
	Algorithm string `json:"algorithm"`
	Nonce     []byte `json:"nonce"`
}

// Envelope is the versioned, self-describing container of an encrypted blob.
// Byte slices are base64 encoded in the serialized format.
type Envelope struct {
	Version    int          `json:"version"`
	Kdf        KdfParams    `json:"kdf"`
	Cipher     CipherParams `json:"cipher"`
	Ciphertext []byte       `json:"ciphertext"`
	AuthTag    []byte       `json:"authTag"`
}

// Serialize returns the stable JSON wire format of the envelope.
func (e *Envelope) Serialize() ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Parse deserializes and structurally validates an envelope. It does not
// attempt any decryption.
func Parse(buf []byte) (*Envelope, error) {
	if len(buf) <= 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrUnsupportedEnvelope)
	}

	env := &Envelope{}
	if err := json.Unmarshal(buf, env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEnvelope, err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// header returns the canonical encoding of the non-secret envelope fields.
// It is bound to the ciphertext as associated data so that any change to the
// version or to the kdf/cipher parameters fails authentication.
func (e *Envelope) header() []byte {
	buf, _ := json.Marshal(struct {
		Version int          `json:"version"`
		Kdf     KdfParams    `json:"kdf"`
		Cipher  CipherParams `json:"cipher"`
	}{e.Version, e.Kdf, e.Cipher})
	return buf
}

func (e *Envelope) validate() error {
	algos, ok := algorithmsByVersion[e.Version]
	if !ok {
		return fmt.Errorf("%w: unknown version %d", ErrUnsupportedEnvelope, e.Version)
	}
	if e.Kdf.Algorithm != algos.kdf {
		return fmt.Errorf(
			"%w: kdf %q not allowed for version %d",
			ErrUnsupportedEnvelope, e.Kdf.Algorithm, e.Version,
		)
	}
	if e.Cipher.Algorithm != algos.cipher {
		return fmt.Errorf(
			"%w: cipher %q not allowed for version %d",
			ErrUnsupportedEnvelope, e.Cipher.Algorithm, e.Version,
		)
	}
	if len(e.Kdf.Salt) != saltLen {
		return fmt.Errorf("%w: invalid salt length", ErrUnsupportedEnvelope)
	}
	if e.Kdf.KeyLen != keyLen {
		return fmt.Errorf("%w: invalid key length", ErrUnsupportedEnvelope)
	}
	if err := checkKdfCost(e.Kdf); err != nil {
		return err
	}
	if len(e.Cipher.Nonce) != nonceSize(e.Cipher.Algorithm) {
		return fmt.Errorf("%w: invalid nonce length", ErrUnsupportedEnvelope)
	}
	if len(e.Ciphertext) <= 0 {
		return fmt.Errorf("%w: missing ciphertext", ErrUnsupportedEnvelope)
	}
	if len(e.AuthTag) != tagLen {
		return fmt.Errorf("%w: invalid auth tag length", ErrUnsupportedEnvelope)
	}
	return nil
}
