package session

import (
	"context"
	"net/http"
	"time"

	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

// Store is the credential allow-list. A signed token is authoritative only
// while its jti is present here; removing the jti revokes the session no
// matter how much lifetime the signature has left.
type Store interface {
	Allow(ctx context.Context, jti string, accountID int64, ttl time.Duration) error
	IsAllowed(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string, accountID int64) error
	RevokeAll(ctx context.Context, accountID int64) error
}

// Account is the resolved subject of an authenticated request.
type Account struct {
	ID    int64
	Name  string
	Email string
	Role  string
}

type contextKey struct{}

var accountContextKey contextKey

func SetAccountToCtx(ctx context.Context, acc Account) context.Context {
	return context.WithValue(ctx, accountContextKey, acc)
}

func GetAccountFromCtx(ctx context.Context) (Account, error) {
	acc, ok := ctx.Value(accountContextKey).(Account)
	if !ok {
		return Account{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "invalid token")
	}

	return acc, nil
}
