package proof

import (
	"context"
	"io"
)

// Object is an uploaded proof-of-payment artifact. The core never inspects Body.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists proof artifacts and hands back an opaque, stable reference.
type Store interface {
	Save(ctx context.Context, loanID string, obj Object) (ref string, err error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}
