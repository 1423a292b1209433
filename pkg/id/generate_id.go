package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewLoanNumber returns a human-readable loan number, e.g. "LN-3F9A0C21B7D4".
func NewLoanNumber() string {
	return "LN-" + strings.ToUpper(NewID32()[:12])
}

// NewTransactionRef returns a system-generated transaction reference ("TXN-" + 12 upper hex).
func NewTransactionRef() string {
	u := uuid.New()
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:12])
}
