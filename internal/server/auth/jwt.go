// Package auth issues and verifies the bearer tokens of the HTTP API.
//
// Owner tokens carry the owner id in the subject and unlock the owner-scoped
// drawing operations. Service tokens identify internal callers (schedulers,
// other backends) and only unlock the system-scoped status lookup by urn.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "drawkeeper"

// Kind tells owner tokens from service tokens.
type Kind string

const (
	KindOwner   Kind = "owner"
	KindService Kind = "service"
)

// Claims are the registered claims plus the token kind.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// Principal is the verified identity behind a token.
type Principal struct {
	Subject string
	Kind    Kind
}

func GenerateToken(subject string, kind Kind, secretKey []byte, validityDuration time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrInvalidToken)
	}
	if kind != KindOwner && kind != KindService {
		return "", fmt.Errorf("%w: unknown kind %q", common.ErrInvalidToken, kind)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Kind: kind,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString. Expired tokens yield
// common.ErrTokenExpired, anything else that fails verification
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	if claims.Kind != KindOwner && claims.Kind != KindService {
		return nil, fmt.Errorf("%w: unknown kind %q", common.ErrInvalidToken, claims.Kind)
	}

	return &Principal{Subject: claims.Subject, Kind: claims.Kind}, nil
}
