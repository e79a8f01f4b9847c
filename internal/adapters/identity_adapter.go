package adapters

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/MohsinAliJafery/backend/internal/model"
)

const maxUserIDLen = 128

var ErrMissingIdentity = errors.New("identity: missing user id")

// HeaderIdentityVerifier trusts the user id forwarded by the authenticating
// proxy in front of the service.
type HeaderIdentityVerifier struct{}

func NewHeaderIdentityVerifier() *HeaderIdentityVerifier {
	return &HeaderIdentityVerifier{}
}

func (HeaderIdentityVerifier) Verify(_ context.Context, credential string) (*model.Customer, error) {
	id := strings.TrimSpace(credential)
	if id == "" {
		return nil, ErrMissingIdentity
	}
	if len(id) > maxUserIDLen || strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return nil, errors.New("identity: malformed user id")
	}
	return &model.Customer{UserID: id}, nil
}
