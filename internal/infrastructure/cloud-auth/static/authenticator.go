package cloudauth

import (
	"context"
	"fmt"

	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
)

var ErrNotAuthenticated = fmt.Errorf("no cloud credential for account")

type authenticator struct {
	username string
	secret   string
	accounts map[string]struct{}
}

// NewAuthenticator returns a ports.CloudAuthenticator handing out the same
// configured username and secret for the given accounts, or for any account
// if none is given.
func NewAuthenticator(
	username, secret string, accountIDs ...string,
) ports.CloudAuthenticator {
	accounts := make(map[string]struct{})
	for _, id := range accountIDs {
		accounts[id] = struct{}{}
	}
	return &authenticator{username, secret, accounts}
}

func (a *authenticator) Authenticate(
	ctx context.Context, account domain.Account,
) (*ports.CloudCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if len(a.accounts) > 0 {
		if _, ok := a.accounts[account.ID]; !ok {
			return nil, ErrNotAuthenticated
		}
	}
	return &ports.CloudCredential{
		AccountID: account.ID,
		Username:  a.username,
		Secret:    a.secret,
	}, nil
}
