// Package storage keeps proof-of-payment files on the local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"loan-servicing-backend/internal/domain/apperr"
	"loan-servicing-backend/internal/domain/proof"
)

const refPrefix = "/payment_proofs/"

var _ proof.Store = (*Local)(nil)

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = &apperr.ValidationError{Field: "proof_of_payment", Message: "file too large"}

type Local struct {
	dir      string
	maxBytes int64
}

// NewLocal creates dir when missing. maxBytes <= 0 disables the size check.
func NewLocal(dir string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create proof dir: %w", err)
	}
	return &Local{dir: dir, maxBytes: maxBytes}, nil
}

// Save writes the object under a unique name and returns "/payment_proofs/<name>".
// The file only appears once fully written.
func (s *Local) Save(ctx context.Context, loanID string, obj proof.Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("payment_%s_%s%s", sanitize(loanID), uuid.NewString(), extension(obj))

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	body := obj.Body
	if s.maxBytes > 0 {
		body = io.LimitReader(obj.Body, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write proof: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("publish proof: %w", err)
	}
	return refPrefix + name, nil
}

func (s *Local) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(ref, refPrefix)
	if name == ref || name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		return nil, apperr.NotFound("proof", ref)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("proof", ref)
	}
	return f, err
}

func extension(obj proof.Object) string {
	if ext := strings.ToLower(filepath.Ext(obj.Name)); ext != "" && len(ext) <= 6 {
		return sanitize(ext)
	}
	if exts, _ := mime.ExtensionsByType(obj.ContentType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, s)
}
