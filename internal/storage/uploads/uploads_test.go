package uploads

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilregistry/backend/internal/apperror"
)

func TestLocalStore_SaveAndRemove(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 1024)
	userID := uuid.New()

	stored, err := store.Save(context.Background(), userID, Incoming{
		OriginalName: "My Passport Scan.PDF",
		MimeType:     "application/pdf",
		Size:         7,
		Content:      strings.NewReader("%PDF-1."),
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.Root, userID.String()), filepath.Dir(stored.Path))
	assert.True(t, strings.HasPrefix(stored.FileName, "my-passport-scan-"))
	assert.True(t, strings.HasSuffix(stored.FileName, ".pdf"))
	assert.Equal(t, int64(7), stored.Size)

	data, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.", string(data))

	require.NoError(t, store.Remove(context.Background(), stored.Path))
	_, err = os.Stat(stored.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(context.Background(), stored.Path))
}

func TestLocalStore_RejectsType(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 1024)

	_, err := store.Save(context.Background(), uuid.New(), Incoming{
		OriginalName: "script.exe",
		MimeType:     "application/octet-stream",
		Content:      strings.NewReader("MZ"),
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = store.Save(context.Background(), uuid.New(), Incoming{
		OriginalName: "photo.png",
		MimeType:     "application/pdf",
		Content:      strings.NewReader("x"),
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLocalStore_RejectsOversizeContent(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, 4)
	userID := uuid.New()

	// declared size lies, content is longer than the limit
	_, err := store.Save(context.Background(), userID, Incoming{
		OriginalName: "photo.jpg",
		MimeType:     "image/jpeg",
		Size:         2,
		Content:      strings.NewReader("0123456789"),
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	entries, err := os.ReadDir(filepath.Join(root, userID.String()))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
