package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *FSStore {
		t.Helper()
		s, err := NewFSStore(t.TempDir())
		require.NoError(t, err)
		return s
	}

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		content := []byte("signed rental agreement")

		ref, err := s.Put(ctx, bytes.NewReader(content))
		require.NoError(t, err)
		assert.True(t, ValidRef(ref))

		// Ref is the sha-256 of the content.
		sum := sha256.Sum256(content)
		assert.Equal(t, hex.EncodeToString(sum[:]), ref)

		rc, err := s.Get(ctx, ref)
		require.NoError(t, err)
		defer rc.Close()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("same content yields the same ref", func(t *testing.T) {
		s := newStore(t)

		ref1, err := s.Put(ctx, strings.NewReader("photo bytes"))
		require.NoError(t, err)
		ref2, err := s.Put(ctx, strings.NewReader("photo bytes"))
		require.NoError(t, err)
		assert.Equal(t, ref1, ref2)

		ref3, err := s.Put(ctx, strings.NewReader("different bytes"))
		require.NoError(t, err)
		assert.NotEqual(t, ref1, ref3)
	})

	t.Run("missing blob", func(t *testing.T) {
		s := newStore(t)

		missing := strings.Repeat("ab", 32)
		_, err := s.Get(ctx, missing)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed refs", func(t *testing.T) {
		s := newStore(t)

		for _, ref := range []string{"", "short", strings.Repeat("g", 64), "../../etc/passwd"} {
			_, err := s.Get(ctx, ref)
			assert.ErrorIs(t, err, ErrInvalidRef, "ref %q", ref)
		}
	})
}
