package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// saltSize is the number of random bytes in a salt; the stored salt is
// their hex encoding.
const saltSize = 32

// HashPassword returns the hex-encoded HMAC-SHA256 of plaintext keyed by salt.
// The result is deterministic for a given (salt, plaintext) pair.
func HashPassword(salt, plaintext string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckPassword reports whether plaintext hashes to digest under salt.
func CheckPassword(salt, plaintext, digest string) bool {
	return hmac.Equal([]byte(HashPassword(salt, plaintext)), []byte(digest))
}

// NewCredentials draws a fresh salt and hashes plaintext with it.
func NewCredentials(plaintext string) (models.Credentials, error) {
	salt, err := common.MakeRandHexString(saltSize)
	if err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{Hash: HashPassword(salt, plaintext), Salt: salt}, nil
}
