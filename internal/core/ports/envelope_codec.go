package ports

import (
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/pkg/envelope"
)

// EnvelopeCodec encrypts wallet identities into password protected envelopes
// and back.
type EnvelopeCodec interface {
	Encrypt(password string, wallet *domain.WalletIdentity) (*envelope.Envelope, error)
	Decrypt(password string, env *envelope.Envelope) (*domain.WalletIdentity, error)
}
