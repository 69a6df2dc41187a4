// Package storage writes user-uploaded media to the local media directory.
package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"agora/internal/config"
	"agora/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

const (
	DefaultMediaDir        = "./media"
	DefaultMediaBaseURL    = "/media"
	DefaultAvatarMaxSizeMB = 5
	AvatarSize             = 256
	AvatarWebPQuality      = 80
)

var allowedAvatarExtensions = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
}

// AvatarStore validates, normalises and persists profile pictures. Every
// stored avatar is a square WebP addressed by a content hash.
type AvatarStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewAvatarStore(cfg *config.Config) *AvatarStore {
	dir := DefaultMediaDir
	baseURL := DefaultMediaBaseURL
	maxMB := DefaultAvatarMaxSizeMB
	if cfg != nil {
		if cfg.MediaDir != "" {
			dir = cfg.MediaDir
		}
		if cfg.MediaBaseURL != "" {
			baseURL = cfg.MediaBaseURL
		}
		if cfg.AvatarMaxUploadSizeMB > 0 {
			maxMB = cfg.AvatarMaxUploadSizeMB
		}
	}
	return &AvatarStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: int64(maxMB) * 1024 * 1024,
	}
}

// MaxBytes is the upload limit enforced by Save.
func (s *AvatarStore) MaxBytes() int64 {
	return s.maxBytes
}

// Dir is the media root served under the base URL.
func (s *AvatarStore) Dir() string {
	return s.dir
}

// URLPrefix is the local path the media directory is served under. An
// absolute base URL points at an external host, so the default is used.
func (s *AvatarStore) URLPrefix() string {
	if strings.HasPrefix(s.baseURL, "/") {
		return s.baseURL
	}
	return DefaultMediaBaseURL
}

// Save checks filename and content, writes the normalised avatar and returns
// its public URL under <base>/avatars/.
func (s *AvatarStore) Save(userID uint, filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	wantFormat, ok := allowedAvatarExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", models.NewValidationError("Invalid file type. Allowed: png, jpg, jpeg, gif")
	}
	if !strings.HasPrefix(http.DetectContentType(content), "image/") {
		return "", models.NewValidationError("Invalid image file")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if format != wantFormat {
		return "", models.NewValidationError("Image content does not match file extension")
	}

	square := resizeSquare(cropSquare(decoded), AvatarSize)
	var buf bytes.Buffer
	if err := webp.Encode(&buf, square, &webp.Options{Quality: AvatarWebPQuality}); err != nil {
		return "", models.NewInternalError(err)
	}

	name := avatarHash(userID, buf.Bytes()) + ".webp"
	if err := writeBytesToFile(filepath.Join(s.dir, "avatars", name), buf.Bytes()); err != nil {
		return "", models.NewInternalError(err)
	}
	return s.baseURL + path.Join("/avatars", name), nil
}

// Remove deletes a previously stored avatar. URLs outside the avatar
// directory are ignored.
func (s *AvatarStore) Remove(url string) error {
	prefix := s.baseURL + "/avatars/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, "avatars", name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if side <= 0 {
		return src
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

// resizeSquare scales down to size; smaller images keep their resolution.
func resizeSquare(src image.Image, size int) image.Image {
	b := src.Bounds()
	if b.Dx() <= size {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func avatarHash(userID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", userID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
