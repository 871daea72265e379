package envelopecodec

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
	"github.com/vulpemventures/keeper/pkg/envelope"
)

type CodecOpts struct {
	// Version of the envelopes created by Encrypt, defaults to
	// envelope.DefaultVersion. Decrypt supports any known version.
	Version    int
	Argon2Cost *envelope.Argon2Cost
	ScryptCost *envelope.ScryptCost
	Deriver    domain.IAddressDeriver
}

func (o CodecOpts) validate() error {
	if o.Deriver == nil {
		return fmt.Errorf("missing address deriver")
	}
	switch o.Version {
	case 0, envelope.VersionScryptAESGCM, envelope.VersionArgon2XChaCha:
	default:
		return fmt.Errorf(
			"%w: unknown version %d", envelope.ErrUnsupportedEnvelope, o.Version,
		)
	}
	return nil
}

type codec struct {
	opts envelope.SealOpts
	// deriver is used to make sure the decrypted seed matches the address.
	deriver domain.IAddressDeriver
}

// NewCodec returns the implementation of ports.EnvelopeCodec sealing
// wallet identities with the envelope package.
func NewCodec(opts CodecOpts) (ports.EnvelopeCodec, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	sealOpts := envelope.SealOpts{
		Version:    opts.Version,
		Argon2Cost: opts.Argon2Cost,
		ScryptCost: opts.ScryptCost,
	}
	return &codec{sealOpts, opts.Deriver}, nil
}

func (c *codec) Encrypt(
	password string, wallet *domain.WalletIdentity,
) (*envelope.Envelope, error) {
	if len(password) <= 0 {
		return nil, domain.ErrMissingPassword
	}
	if wallet == nil || wallet.Address == "" {
		return nil, domain.ErrMissingAddress
	}
	if wallet.IsReadOnly() {
		return nil, domain.ErrWalletReadOnly
	}

	plaintext, err := json.Marshal(wallet)
	if err != nil {
		return nil, err
	}
	defer clear(plaintext)

	pwd := []byte(password)
	defer clear(pwd)

	return envelope.Seal(pwd, plaintext, c.opts)
}

func (c *codec) Decrypt(
	password string, env *envelope.Envelope,
) (*domain.WalletIdentity, error) {
	if len(password) <= 0 {
		return nil, domain.ErrMissingPassword
	}

	pwd := []byte(password)
	defer clear(pwd)

	plaintext, err := envelope.Open(pwd, env)
	if err != nil {
		return nil, err
	}
	defer clear(plaintext)

	var decoded domain.WalletIdentity
	if err := json.Unmarshal(plaintext, &decoded); err != nil {
		log.Debug("envelope codec: decrypted payload is not a wallet identity")
		return nil, fmt.Errorf("%w: malformed payload", domain.ErrUnsupportedEnvelope)
	}

	wallet, err := domain.NewWalletIdentity(decoded.Address, decoded.Seed, c.deriver)
	if err != nil {
		log.WithError(err).Debugf(
			"envelope codec: invalid identity for address %s", decoded.Address,
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidWalletIdentity, err)
	}
	wallet.LocalBackupAt = decoded.LocalBackupAt
	wallet.CloudBackupAt = decoded.CloudBackupAt
	return wallet, nil
}
