package auth

import (
	"context"
	"net/http"
	"strconv"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/account"
	"github.com/KendrickOdei/fastTix-sub000/internal/pkg/jwt"
	"github.com/KendrickOdei/fastTix-sub000/internal/pkg/session"
	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

type AuthUseCase interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (RefreshResponse, error)
	Logout(ctx context.Context, req LogoutRequest) error
	LogoutAll(ctx context.Context) error
}

type authUseCase struct {
	logger               *logrus.Logger
	timeout              time.Duration
	jsonWebToken         *jwt.JSONWebToken
	store                session.Store
	accountRepository    account.AccountRepository
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

type AuthUseCaseProperty struct {
	Logger               *logrus.Logger
	Timeout              time.Duration
	JSONWebToken         *jwt.JSONWebToken
	SessionStore         session.Store
	AccountRepository    account.AccountRepository
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

func NewAuthUseCase(props AuthUseCaseProperty) AuthUseCase {
	return &authUseCase{
		logger:               props.Logger,
		timeout:              props.Timeout,
		jsonWebToken:         props.JSONWebToken,
		store:                props.SessionStore,
		accountRepository:    props.AccountRepository,
		accessTokenDuration:  props.AccessTokenDuration,
		refreshTokenDuration: props.RefreshTokenDuration,
	}
}

var (
	errInvalidCredential = errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "invalid email or password")
	errInvalidToken      = errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "invalid token")
)

// issueToken mints a signed credential and registers its jti in the session
// store. The registration is part of issuance: a token whose jti could not
// be allow-listed is discarded and never returned.
func (u *authUseCase) issueToken(ctx context.Context, acc account.Account, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := jwt.AccountClaims{
		Name:      acc.Name,
		Email:     acc.Email,
		Role:      acc.Role,
		TokenType: tokenType,
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(acc.ID, 10),
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
		},
	}

	token, err := u.jsonWebToken.Sign(claims)
	if err != nil {
		u.logger.WithContext(ctx).WithError(err).Error()
		return "", time.Time{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while issuing the token")
	}

	if err := u.store.Allow(ctx, claims.ID, acc.ID, ttl); err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// Login implements AuthUseCase.
func (u *authUseCase) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := u.accountRepository.FindByEmail(ctx, req.Email, nil)
	if err != nil {
		if errors.Destruct(err).HTTPStatusCode == http.StatusNotFound {
			return LoginResponse{}, errInvalidCredential
		}
		return LoginResponse{}, err
	}

	if acc.Status != account.StatusActive {
		return LoginResponse{}, errInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.Password), []byte(req.Password)); err != nil {
		return LoginResponse{}, errInvalidCredential
	}

	accessToken, accessExpiresAt, err := u.issueToken(ctx, acc, jwt.TokenTypeAccess, u.accessTokenDuration)
	if err != nil {
		return LoginResponse{}, err
	}

	refreshToken, refreshExpiresAt, err := u.issueToken(ctx, acc, jwt.TokenTypeRefresh, u.refreshTokenDuration)
	if err != nil {
		return LoginResponse{}, err
	}

	return LoginResponse{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiresAt,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: refreshExpiresAt,
		Account: AccountResponse{
			ID:    acc.ID,
			Name:  acc.Name,
			Email: acc.Email,
			Role:  acc.Role,
		},
	}, nil
}

// parseRefreshToken validates the presented refresh credential up to and
// including its allow-list membership, and returns its claims.
func (u *authUseCase) parseRefreshToken(ctx context.Context, rawToken string) (jwt.AccountClaims, error) {
	var claims jwt.AccountClaims
	if err := u.jsonWebToken.Parse(rawToken, &claims); err != nil {
		return jwt.AccountClaims{}, errInvalidToken
	}

	if claims.TokenType != jwt.TokenTypeRefresh || claims.ID == "" {
		return jwt.AccountClaims{}, errInvalidToken
	}

	allowed, err := u.store.IsAllowed(ctx, claims.ID)
	if err != nil {
		return jwt.AccountClaims{}, err
	}
	if !allowed {
		return jwt.AccountClaims{}, errInvalidToken
	}

	return claims, nil
}

// Refresh implements AuthUseCase. The refresh jti stays allow-listed; only a
// fresh access token is minted.
func (u *authUseCase) Refresh(ctx context.Context, req RefreshRequest) (RefreshResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	claims, err := u.parseRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return RefreshResponse{}, err
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return RefreshResponse{}, errInvalidToken
	}

	acc, err := u.accountRepository.FindByID(ctx, accountID, nil)
	if err != nil {
		if errors.Destruct(err).HTTPStatusCode == http.StatusNotFound {
			return RefreshResponse{}, errInvalidToken
		}
		return RefreshResponse{}, err
	}

	if acc.Status != account.StatusActive {
		return RefreshResponse{}, errInvalidToken
	}

	accessToken, accessExpiresAt, err := u.issueToken(ctx, acc, jwt.TokenTypeAccess, u.accessTokenDuration)
	if err != nil {
		return RefreshResponse{}, err
	}

	return RefreshResponse{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: accessExpiresAt,
	}, nil
}

// Logout implements AuthUseCase. Revokes the presented refresh jti so any
// later redemption attempt fails closed, and the accompanying access jti when
// one was presented.
func (u *authUseCase) Logout(ctx context.Context, req LogoutRequest) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	claims, err := u.parseRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return err
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return errInvalidToken
	}

	if req.AccessToken != "" {
		var accessClaims jwt.AccountClaims
		if err := u.jsonWebToken.Parse(req.AccessToken, &accessClaims); err == nil && accessClaims.ID != "" {
			if err := u.store.Revoke(ctx, accessClaims.ID, accountID); err != nil {
				u.logger.WithContext(ctx).WithError(err).Warn("failed to revoke access session on logout")
			}
		}
	}

	return u.store.Revoke(ctx, claims.ID, accountID)
}

// LogoutAll implements AuthUseCase. Revokes every active session of the
// authenticated account, refresh and access credentials alike.
func (u *authUseCase) LogoutAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return err
	}

	return u.store.RevokeAll(ctx, acc.ID)
}
