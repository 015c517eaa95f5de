package facades

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalImageStorage_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	storage := NewLocalImageStorage(root, "http://localhost:8080/media")

	ref, err := storage.Save(ctx, "soup.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, ImageDir+"/soup-"))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	assert.Equal(t, "http://localhost:8080/media/"+ref, storage.URL(ref))

	require.NoError(t, storage.Delete(ctx, ref))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(ref)))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, storage.Delete(ctx, ref))
}

func TestLocalImageStorage_DeleteRejectsEscape(t *testing.T) {
	storage := NewLocalImageStorage(t.TempDir(), "/media/")

	for _, ref := range []string{"../secret.png", "..", "recipe_images/../../x"} {
		assert.Error(t, storage.Delete(context.Background(), ref), ref)
	}
}

func TestLocalImageStorage_SaveError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

	// media root is a regular file, so the image directory cannot be created
	storage := NewLocalImageStorage(root, "/media/")
	_, err := storage.Save(context.Background(), "soup.png", "image/png", []byte("x"))
	assert.Error(t, err)
}
