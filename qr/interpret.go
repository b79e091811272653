/*
interpret.go - Scan classification

PURPOSE:
  Single parse-and-classify entry point for decoded scan text. The
  result is a tagged value: attendance token (with validation outcome),
  equipment code, or unrecognized pass-through.

CLASSIFICATION ORDER (first match wins):
  1. JSON payload with the attendance token shape -> KindAttendance
  2. Equipment code: known prefix followed by digits -> KindEquipment
  3. Anything else -> KindUnrecognized, raw text preserved for manual entry

TOTALITY:
  Interpret never fails. Malformed JSON, missing fields, and unknown
  shapes all fall through to KindUnrecognized.
*/
package qr

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// SCAN RESULT - Tagged classification outcome
// =============================================================================

type Kind string

const (
	KindAttendance   Kind = "attendance"
	KindEquipment    Kind = "equipment"
	KindUnrecognized Kind = "unrecognized"
)

// Result is the classified form of one decoded scan.
type Result struct {
	Kind Kind

	// Attendance fields (Kind == KindAttendance)
	Token      *DailyToken
	Validation *Validation

	// Equipment fields (Kind == KindEquipment)
	EquipmentID string

	// Raw is the original text, preserved for manual entry when the
	// scan is unrecognized.
	Raw string
}

// =============================================================================
// INTERPRETER
// =============================================================================

// DefaultEquipmentPrefix is the code prefix equipment labels carry.
const DefaultEquipmentPrefix = "EQ"

// Interpreter classifies decoded scan text.
type Interpreter struct {
	issuer        *TokenIssuer
	equipmentCode *regexp.Regexp
	now           func() time.Time
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithEquipmentPrefix overrides the equipment code prefix.
func WithEquipmentPrefix(prefix string) Option {
	return func(in *Interpreter) {
		in.equipmentCode = equipmentPattern(prefix)
	}
}

// WithNow overrides the clock used for token expiry checks (tests).
func WithNow(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

func NewInterpreter(issuer *TokenIssuer, opts ...Option) *Interpreter {
	in := &Interpreter{
		issuer:        issuer,
		equipmentCode: equipmentPattern(DefaultEquipmentPrefix),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func equipmentPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-?[0-9]+$`)
}

// Interpret classifies one decoded scan. It is total: any input string
// yields a Result, never an error.
func (in *Interpreter) Interpret(text string) Result {
	trimmed := strings.TrimSpace(text)

	if tok, ok := parseToken(trimmed); ok {
		v := in.issuer.Validate(tok, in.now())
		return Result{Kind: KindAttendance, Token: &tok, Validation: &v, Raw: text}
	}

	if in.equipmentCode.MatchString(trimmed) {
		return Result{Kind: KindEquipment, EquipmentID: trimmed, Raw: text}
	}

	return Result{Kind: KindUnrecognized, Raw: text}
}

// parseToken attempts to read the attendance token shape. Anything that
// doesn't parse cleanly, or carries the wrong type tag, falls through.
func parseToken(text string) (DailyToken, bool) {
	if !strings.HasPrefix(text, "{") {
		return DailyToken{}, false
	}

	var tok DailyToken
	if err := json.Unmarshal([]byte(text), &tok); err != nil {
		return DailyToken{}, false
	}
	if tok.Type != TokenType || tok.WorkerID == "" || tok.Date == "" {
		return DailyToken{}, false
	}
	return tok, true
}
