// Package anonymizer masks player identities behind stable opaque tokens.
//
// A token is a keyed one-way hash: the same player always maps to the same
// token under one key, and the key is configured once per process.
package anonymizer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
)

const (
	tokenPrefix = "anon_"
	tokenBytes  = 8
)

// Anonymizer maps player ids to opaque tokens.
type Anonymizer struct {
	key []byte
}

// New creates an anonymizer keyed with secret.
func New(secret string) (*Anonymizer, error) {
	if secret == "" {
		return nil, errors.New("anonymizer secret is required")
	}
	return &Anonymizer{key: []byte(secret)}, nil
}

// Token returns the opaque token for playerID.
func (a *Anonymizer) Token(playerID int64) string {
	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(strconv.FormatInt(playerID, 10)))
	sum := mac.Sum(nil)
	return tokenPrefix + hex.EncodeToString(sum[:tokenBytes])
}
