// Package auth holds password hashing, one-time codes, account tokens and
// the identity checks applied to callers.
package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload. Tokens carry no expiry.
type Claims struct {
	jwt.RegisteredClaims
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// TokenIssuer signs and parses HS256 account tokens.
type TokenIssuer struct {
	secretKey []byte
}

func NewTokenIssuer(secretKey []byte) *TokenIssuer {
	return &TokenIssuer{secretKey: secretKey}
}

// Issue signs a token for account. It fails with common.ErrAccountMissing for
// a nil account and with an error matching common.ErrIneligibleAccount unless
// the account is verified and active.
func (t *TokenIssuer) Issue(account *models.Account) (string, error) {
	if account == nil {
		return "", common.ErrAccountMissing
	}
	if !account.Verified {
		return "", common.ErrAccountNotVerified
	}
	if account.AccountStatus != models.DefaultAccountStatus {
		return "", common.ErrAccountNotActive
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:    account.ID,
		Email: account.Email,
		Phone: account.Phone,
		Role:  account.Role,
	})

	tokenString, err := token.SignedString(t.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Parse validates tokenString and returns the identity it carries.
func (t *TokenIssuer) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secretKey, nil
	})
	if err != nil {
		return Identity{}, errors.Join(common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.ID == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{ID: claims.ID, Email: claims.Email, Phone: claims.Phone, Role: claims.Role}, nil
}
