/*
Package qr turns decoded QR text into typed, validated commands.

PURPOSE:
  The scanner collaborator hands this package a single decoded UTF-8
  string per scan, with no guaranteed format. The package classifies it
  (attendance token, equipment code, or unrecognized) and, for
  attendance tokens, checks the anti-replay hash and expiry.

KEY CONCEPTS IN THIS FILE (token.go):
  - DailyToken: Short-lived, worker-specific attendance payload
  - TokenIssuer: Generates and validates tokens with a keyed HMAC
  - Validation: Typed negative results ("tampered", "expired"), never errors

TOKEN SHAPE (JSON):
  {type, workerId, name, date, expiresAt, hash}

ANTI-REPLAY:
  The hash is an HMAC-SHA256 over the worker id, keyed by a secret that
  is itself derived from the issue date. Two tokens for the same worker
  on the same date are byte-identical; tokens from different dates never
  validate against each other. Expiry is always the midnight boundary
  following the issue date and is recomputed from the date field during
  validation, so it cannot be extended by editing the payload.

  The system this replaces used a guessable rolling integer hash; the
  validation contract (deterministic, tamper-detecting, date-scoped) is
  unchanged, only the function is stronger. Tokens live for at most one
  day and are regenerated on demand, so there is no migration concern.

PURITY:
  Generation and validation are pure computation - no storage, no
  network. Tokens are validated purely by recomputation.

SEE ALSO:
  - interpret.go: Classification entry point
*/
package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TokenType is the type tag carried by attendance token payloads.
const TokenType = "attendance"

const dateLayout = "2006-01-02"

// =============================================================================
// DAILY TOKEN
// =============================================================================

// DailyToken is the external representation of a worker's attendance
// token for one calendar day. It is derived, never stored server-side.
type DailyToken struct {
	Type      string    `json:"type"`
	WorkerID  string    `json:"workerId"`
	Name      string    `json:"name"`
	Date      string    `json:"date"` // issue date, 2006-01-02
	ExpiresAt time.Time `json:"expiresAt"`
	Hash      string    `json:"hash"`
}

// Validation is the typed outcome of token validation.
type Validation struct {
	Valid  bool
	Reason string // "tampered" or "expired" when not valid
}

const (
	ReasonTampered = "tampered"
	ReasonExpired  = "expired"
)

// =============================================================================
// TOKEN ISSUER
// =============================================================================

// TokenIssuer generates and validates daily tokens with a keyed HMAC.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret}
}

// GenerateDailyToken produces the token for (workerID, day). It is a
// pure function of its inputs: two calls with the same worker and day
// yield byte-identical tokens.
func (ti *TokenIssuer) GenerateDailyToken(workerID, name string, day time.Time) DailyToken {
	issue := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	date := issue.Format(dateLayout)
	return DailyToken{
		Type:      TokenType,
		WorkerID:  workerID,
		Name:      name,
		Date:      date,
		ExpiresAt: issue.AddDate(0, 0, 1),
		Hash:      ti.hash(workerID, date),
	}
}

// Validate recomputes the token's hash and expiry. Malformed or
// mismatching tokens report "tampered"; structurally sound tokens past
// the midnight boundary report "expired". Validation never fails with
// an error: negative outcomes are data.
func (ti *TokenIssuer) Validate(tok DailyToken, now time.Time) Validation {
	issue, err := time.ParseInLocation(dateLayout, tok.Date, now.Location())
	if err != nil {
		return Validation{Valid: false, Reason: ReasonTampered}
	}

	expected := ti.hash(tok.WorkerID, tok.Date)
	if !hmac.Equal([]byte(expected), []byte(tok.Hash)) {
		return Validation{Valid: false, Reason: ReasonTampered}
	}

	// Expiry derives from the signed date, not the payload's expiresAt.
	expiry := issue.AddDate(0, 0, 1)
	if !now.Before(expiry) {
		return Validation{Valid: false, Reason: ReasonExpired}
	}
	return Validation{Valid: true}
}

// hash computes HMAC-SHA256(dayKey, workerID) where dayKey is derived
// from the issue date. Date-scoping the key keeps tokens from distinct
// dates mutually invalid even for the same worker.
func (ti *TokenIssuer) hash(workerID, date string) string {
	dayKey := hmac.New(sha256.New, ti.secret)
	dayKey.Write([]byte(date))

	mac := hmac.New(sha256.New, dayKey.Sum(nil))
	mac.Write([]byte(workerID))
	return hex.EncodeToString(mac.Sum(nil))
}
