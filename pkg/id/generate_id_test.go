package id

import (
	"encoding/hex"
	"regexp"
	"testing"
)

var (
	reHex32  = regexp.MustCompile(`^[a-f0-9]{32}$`)
	reLoanNo = regexp.MustCompile(`^LN-[A-F0-9]{12}$`)
	reTxnRef = regexp.MustCompile(`^TXN-[A-F0-9]{12}$`)
)

func TestNewID32_FormatAndDecode(t *testing.T) {
	got := NewID32()

	if len(got) != 32 {
		t.Fatalf("length = %d, want 32 (got=%q)", len(got), got)
	}
	if !reHex32.MatchString(got) {
		t.Fatalf("not 32-char lowercase hex: %q", got)
	}
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("hex.DecodeString error: %v", err)
	}
	if len(b) != 16 {
		t.Fatalf("decoded bytes = %d, want 16", len(b))
	}
}

func TestNewID32_Uniqueness(t *testing.T) {
	const n = 1000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		v := NewID32()
		if _, dup := seen[v]; dup {
			t.Fatalf("duplicate id after %d iterations: %s", i, v)
		}
		seen[v] = struct{}{}
	}
}

func TestNewLoanNumber_Format(t *testing.T) {
	for i := 0; i < 50; i++ {
		if got := NewLoanNumber(); !reLoanNo.MatchString(got) {
			t.Fatalf("bad loan number %q", got)
		}
	}
}

func TestNewTransactionRef_Format(t *testing.T) {
	a, b := NewTransactionRef(), NewTransactionRef()
	if !reTxnRef.MatchString(a) || !reTxnRef.MatchString(b) {
		t.Fatalf("bad refs %q %q", a, b)
	}
	if a == b {
		t.Fatalf("refs should differ, got %q twice", a)
	}
}
