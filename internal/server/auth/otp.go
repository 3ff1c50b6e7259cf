package auth

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// CodeIssuer produces six-digit one-time codes valid for TTL.
type CodeIssuer struct {
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// OnIssue, when set, observes every issued code. It must not change behaviour.
	OnIssue func(code string, expiresAt time.Time)
}

// NewCodeIssuer returns a CodeIssuer with the given validity period.
func NewCodeIssuer(ttl time.Duration) *CodeIssuer {
	return &CodeIssuer{TTL: ttl, Now: time.Now}
}

// randInt is replaced in tests.
var randInt = rand.Int

// Issue returns a code drawn uniformly from [100000, 999999] and its expiry.
func (c *CodeIssuer) Issue() (models.OneTimeCode, error) {
	n, err := randInt(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return models.OneTimeCode{}, err
	}

	code := models.OneTimeCode{
		Code:      strconv.FormatInt(n.Int64()+codeMin, 10),
		ExpiresAt: c.now().Add(c.TTL),
	}

	if c.OnIssue != nil {
		c.OnIssue(code.Code, code.ExpiresAt)
	}
	return code, nil
}

// IssuedAt recovers the issuance time of a code produced by this issuer.
func (c *CodeIssuer) IssuedAt(code models.OneTimeCode) time.Time {
	return code.ExpiresAt.Add(-c.TTL)
}

func (c *CodeIssuer) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
