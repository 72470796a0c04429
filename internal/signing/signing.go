// Package signing implements the keyed-hash claim tags used by the attempt
// engine. A tag proves a claimed correctness flag for a specific option
// without revealing the flag in advance: the client receives both possible
// tags for every option and learns which one was "true" only by answering.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const (
	secretBytes = 16
	saltBytes   = 8
)

// Claim is the statement a tag attests to: "option O of question Q carries
// correctness flag C", blinded by a per-option salt.
type Claim struct {
	QuestionID uuid.UUID
	OptionID   uuid.UUID
	Correct    bool
	Salt       string
}

// payload serializes a claim into the signed byte string.
// Format: "<question_id>:<option_id>:<0|1>:<salt>".
func (c Claim) payload() []byte {
	flag := 0
	if c.Correct {
		flag = 1
	}
	return []byte(fmt.Sprintf("%s:%s:%d:%s", c.QuestionID, c.OptionID, flag, c.Salt))
}

// Signer produces and verifies claim tags with a per-attempt secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer for the given attempt secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex-encoded HMAC-SHA256 tag for a claim. Deterministic:
// equal claims under the same secret always yield equal tags.
func (s *Signer) Sign(c Claim) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(c.payload())
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether tag is the signature of the claim. Comparison is
// constant-time.
func (s *Signer) Verify(tag string, c Claim) bool {
	expected := s.Sign(c)
	return subtle.ConstantTimeCompare([]byte(tag), []byte(expected)) == 1
}

// NewSecret returns a fresh random per-attempt secret (32 hex chars).
func NewSecret() (string, error) {
	return randomHex(secretBytes)
}

// NewSalt returns a fresh random per-option salt (16 hex chars).
func NewSalt() (string, error) {
	return randomHex(saltBytes)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
