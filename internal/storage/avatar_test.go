package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agora/internal/config"
	"agora/internal/models"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestStore(t *testing.T) *AvatarStore {
	t.Helper()
	return NewAvatarStore(&config.Config{MediaDir: t.TempDir(), MediaBaseURL: "/media/", AvatarMaxUploadSizeMB: 1})
}

func TestAvatarStore_SaveNormalisesToSquareWebP(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Save(7, "me.PNG", encodePNG(t, testImage(600, 300)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/avatars/"), url)
	assert.True(t, strings.HasSuffix(url, ".webp"), url)

	data, err := os.ReadFile(filepath.Join(store.Dir(), "avatars", filepath.Base(url)))
	require.NoError(t, err)
	decoded, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, AvatarSize, decoded.Bounds().Dx())
	assert.Equal(t, AvatarSize, decoded.Bounds().Dy())

	require.NoError(t, store.Remove(url))
	_, err = os.Stat(filepath.Join(store.Dir(), "avatars", filepath.Base(url)))
	assert.True(t, os.IsNotExist(err))
}

func TestAvatarStore_AcceptsJPEGAndGIF(t *testing.T) {
	store := newTestStore(t)

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, testImage(100, 120), nil))
	_, err := store.Save(1, "a.jpeg", jpg.Bytes())
	require.NoError(t, err)
	_, err = store.Save(1, "a.jpg", jpg.Bytes())
	require.NoError(t, err)

	var g bytes.Buffer
	require.NoError(t, gif.Encode(&g, testImage(64, 64), nil))
	_, err = store.Save(1, "a.gif", g.Bytes())
	require.NoError(t, err)
}

func TestAvatarStore_Rejects(t *testing.T) {
	store := newTestStore(t)
	pngBytes := encodePNG(t, testImage(32, 32))

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"empty", "a.png", nil},
		{"bad extension", "a.bmp", pngBytes},
		{"no extension", "avatar", pngBytes},
		{"extension mismatch", "a.gif", pngBytes},
		{"not an image", "a.png", []byte("definitely not an image")},
		{"too large", "a.png", append(pngBytes, make([]byte, 1024*1024)...)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Save(1, tc.filename, tc.content)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.CodeValidation), "got %v", err)
		})
	}
}

func TestAvatarStore_RemoveIgnoresForeignURLs(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Remove("https://cdn.example.com/x.png"))
	assert.NoError(t, store.Remove("/media/avatars/../../etc/passwd"))
	assert.NoError(t, store.Remove("/media/avatars/missing.webp"))
}

func TestAvatarStore_URLPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/static", NewAvatarStore(&config.Config{MediaBaseURL: "/static/"}).URLPrefix())
	assert.Equal(t, "/media", NewAvatarStore(&config.Config{MediaBaseURL: "https://cdn.example.com/m"}).URLPrefix())
	assert.Equal(t, "/media", NewAvatarStore(nil).URLPrefix())
}
