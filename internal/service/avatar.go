package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Largest width or height accepted before decoding
const maxAvatarSource = 4096

var ErrAvatarCorrupt = errors.New("image could not be decoded")

// AvatarPolicy configures avatar uploads
type AvatarPolicy struct {
	MaxSize   int64
	Dimension int
	// CorruptIsClientError reports undecodable images as 400 instead of 500
	CorruptIsClientError bool
}

// NormalizeAvatar crops the center square of a JPEG or PNG image, scales
// it to dim x dim and re-encodes it as PNG.
func NormalizeAvatar(data []byte, dim int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrAvatarCorrupt, err)
	}

	if cfg.Width > maxAvatarSource || cfg.Height > maxAvatarSource {
		return nil, fmt.Errorf("%w, %dx%d exceeds %dpx", ErrAvatarCorrupt, cfg.Width, cfg.Height, maxAvatarSource)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrAvatarCorrupt, err)
	}

	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	if side <= 0 {
		return nil, ErrAvatarCorrupt
	}

	crop := image.Rect(0, 0, side, side).Add(image.Point{
		X: b.Min.X + (b.Dx()-side)/2,
		Y: b.Min.Y + (b.Dy()-side)/2,
	})

	dst := image.NewRGBA(image.Rect(0, 0, dim, dim))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode avatar, %w", err)
	}

	return buf.Bytes(), nil
}
