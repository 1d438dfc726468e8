// Package media validates background images and stores them.
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"net/http"

	"soulspark/internal/models"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds the longest edge of a stored background.
	MaxDimension = 1920
	// MaxSourcePixels rejects decompression bombs before full decode.
	MaxSourcePixels = 40_000_000
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Processed is a re-encoded image ready for storage.
type Processed struct {
	Data        []byte
	ContentType string
	Ext         string
	Hash        string
}

// ObjectName is the storage key for the image.
func (p Processed) ObjectName() string {
	return fmt.Sprintf("backgrounds/%s.%s", p.Hash[:16], p.Ext)
}

// Normalize reads at most maxBytes from r, checks the magic bytes, fixes EXIF
// orientation, fits the image within MaxDimension and re-encodes it. PNG stays
// PNG; everything else becomes JPEG.
func Normalize(r io.Reader, maxBytes int64) (Processed, error) {
	limited := &io.LimitedReader{R: r, N: maxBytes + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return Processed{}, fmt.Errorf("could not read image data: %w", err)
	}
	if limited.N == 0 {
		return Processed{}, models.NewValidationError(
			fmt.Sprintf("Image is larger than the %dMB limit", maxBytes/1024/1024))
	}
	if len(data) == 0 {
		return Processed{}, models.NewValidationError("Image file is empty")
	}

	contentType := http.DetectContentType(data)
	if !allowedTypes[contentType] {
		return Processed{}, models.NewValidationError(
			fmt.Sprintf("Unsupported file type: %s. Only JPG, PNG, GIF, and WebP are allowed", contentType))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Processed{}, models.NewValidationError("Invalid image format")
	}
	if cfg.Width*cfg.Height > MaxSourcePixels {
		return Processed{}, models.NewValidationError(
			fmt.Sprintf("Image dimensions (%dx%d) are too large", cfg.Width, cfg.Height))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Processed{}, models.NewValidationError("Invalid image format")
	}
	if img.Bounds().Dx() > MaxDimension || img.Bounds().Dy() > MaxDimension {
		img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	}

	out := Processed{ContentType: "image/jpeg", Ext: "jpeg"}
	var buf bytes.Buffer
	if format == "png" {
		out.ContentType, out.Ext = "image/png", "png"
		err = imaging.Encode(&buf, img, imaging.PNG)
	} else {
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90))
	}
	if err != nil {
		return Processed{}, fmt.Errorf("failed to encode image: %w", err)
	}

	out.Data = buf.Bytes()
	sum := sha256.Sum256(out.Data)
	out.Hash = hex.EncodeToString(sum[:])
	return out, nil
}
