package evidence

import (
	"context"
	"io"
	"net/http"
	"regexp"

	"github.com/wanderstay/escrow-backend/internal/pkg/apperror"
)

var (
	ErrNotFound   = apperror.New(http.StatusNotFound, "not_found", "evidence blob not found")
	ErrInvalidRef = apperror.New(http.StatusBadRequest, "invalid_ref", "evidence ref must be a sha-256 hex digest")
)

// refPattern matches a lowercase sha-256 hex digest.
var refPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Store is a content-addressed blob store for dispute evidence and
// room/service metadata. The escrow core only ever stores and forwards the
// refs returned by Put; it never interprets blob contents.
type Store interface {
	// Put stores the blob and returns its content-addressed ref
	// (sha-256 hex). Storing the same bytes twice yields the same ref.
	Put(ctx context.Context, r io.Reader) (string, error)

	// Get returns a reader for the blob behind ref.
	Get(ctx context.Context, ref string) (io.ReadCloser, error)
}

// ValidRef reports whether ref is a well-formed content address.
func ValidRef(ref string) bool {
	return refPattern.MatchString(ref)
}
