package jwt

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccountClaims is the claim set carried by every credential this service
// issues. RegisteredClaims.ID is the jti used as the revocation key; a token
// without it is never accepted.
type AccountClaims struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JSONWebToken signs and parses RS256 credentials with a fixed key pair.
type JSONWebToken struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewJSONWebToken(privateKeyPEM, publicKeyPEM []byte) *JSONWebToken {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		panic(fmt.Errorf("jwt: parsing private key: %w", err))
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		panic(fmt.Errorf("jwt: parsing public key: %w", err))
	}

	return &JSONWebToken{
		privateKey: privateKey,
		publicKey:  publicKey,
	}
}

func (j *JSONWebToken) Sign(claims AccountClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.privateKey)
}

// Parse validates signature and registered time claims and fills claims on
// success. Expired or tampered tokens return an error.
func (j *JSONWebToken) Parse(tokenString string, claims *AccountClaims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.publicKey, nil
	})
	if err != nil {
		return err
	}

	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}

	return nil
}
