package validators

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNoImage          = errors.New("Please upload an image.")
	ErrImageTooLarge    = errors.New("File too large")
	ErrImageUnsupported = errors.New("Please upload a jpg, jpeg or png image.")
)

var (
	avatarExtensions = []string{".jpg", ".jpeg", ".png"}
	avatarMimeTypes  = []string{"image/jpeg", "image/png"}
)

// AvatarValidator checks an uploaded avatar and returns its content. The
// cheap header checks run first, then the actual bytes are sniffed so a
// renamed file is still rejected.
func AvatarValidator(fh *multipart.FileHeader, maxSize int64) (int, []byte, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, ErrNoImage
	}

	ext := strings.ToLower(path.Ext(fh.Filename))
	if !slices.Contains(avatarExtensions, ext) {
		return http.StatusBadRequest, nil, ErrImageUnsupported
	}

	if fh.Size > maxSize {
		return http.StatusBadRequest, nil, ErrImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	defer f.Close()

	// Read one byte past the limit to catch lying size headers
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	if int64(len(data)) > maxSize {
		return http.StatusBadRequest, nil, ErrImageTooLarge
	}

	mime, err := mimetype.DetectReader(bytes.NewReader(data))
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	if !slices.ContainsFunc(avatarMimeTypes, mime.Is) {
		return http.StatusBadRequest, nil, ErrImageUnsupported
	}

	return 0, data, nil
}
