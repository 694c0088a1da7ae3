package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/account"
	"github.com/KendrickOdei/fastTix-sub000/internal/pkg/jwt"
	"github.com/KendrickOdei/fastTix-sub000/internal/pkg/session"
	"github.com/KendrickOdei/fastTix-sub000/pkg/response"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

// CustomerSession gates protected routes. Checks run in order and stop at
// the first failure: signature and expiry, jti presence, allow-list
// membership, then subject resolution against the durable account store.
// Every failure answers 401 with the same message; the concrete reason is
// only logged.
type CustomerSession struct {
	logger            *logrus.Logger
	jsonWebToken      *jwt.JSONWebToken
	store             session.Store
	accountRepository account.AccountRepository
}

func NewCustomerSessionMiddleware(logger *logrus.Logger, jsonWebToken *jwt.JSONWebToken, store session.Store, accountRepository account.AccountRepository) *CustomerSession {
	return &CustomerSession{
		logger:            logger,
		jsonWebToken:      jsonWebToken,
		store:             store,
		accountRepository: accountRepository,
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}

	return strings.TrimPrefix(h, "Bearer ")
}

// authenticate resolves the request's bearer token to an account, or
// returns the reason it could not. The reason never reaches the client.
func (m *CustomerSession) authenticate(r *http.Request) (session.Account, string) {
	ctx := r.Context()

	rawToken := bearerToken(r)
	if rawToken == "" {
		return session.Account{}, "missing bearer token"
	}

	var claims jwt.AccountClaims
	if err := m.jsonWebToken.Parse(rawToken, &claims); err != nil {
		return session.Account{}, "invalid credential: " + err.Error()
	}

	if claims.TokenType != jwt.TokenTypeAccess {
		return session.Account{}, "credential is not an access token"
	}

	// a credential without a jti escapes the revocation scheme entirely
	if claims.ID == "" {
		return session.Account{}, "credential has no jti"
	}

	allowed, err := m.store.IsAllowed(ctx, claims.ID)
	if err != nil {
		return session.Account{}, "session store lookup failed: " + err.Error()
	}
	if !allowed {
		return session.Account{}, "session revoked or expired"
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return session.Account{}, "malformed subject claim"
	}

	acc, err := m.accountRepository.FindByID(ctx, accountID, nil)
	if err != nil {
		return session.Account{}, "subject not found: " + err.Error()
	}

	if acc.Status != account.StatusActive {
		return session.Account{}, "subject is not active"
	}

	return session.Account{
		ID:    acc.ID,
		Name:  acc.Name,
		Email: acc.Email,
		Role:  acc.Role,
	}, ""
}

// Verify rejects unauthenticated requests.
func (m *CustomerSession) Verify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, reason := m.authenticate(r)
		if reason != "" {
			m.logger.WithContext(r.Context()).WithField("reason", reason).Warn("authentication rejected")
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "invalid token",
			})

			return
		}

		next(w, r.WithContext(session.SetAccountToCtx(r.Context(), acc)))
	}
}

// Identify resolves the session when a token is present but lets guests
// through. Used by routes that serve both authenticated and guest buyers.
func (m *CustomerSession) Identify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) == "" {
			next(w, r)
			return
		}

		acc, reason := m.authenticate(r)
		if reason != "" {
			m.logger.WithContext(r.Context()).WithField("reason", reason).Warn("authentication rejected")
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "invalid token",
			})

			return
		}

		next(w, r.WithContext(session.SetAccountToCtx(r.Context(), acc)))
	}
}
