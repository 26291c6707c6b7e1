package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/service"
)

// maxImageBytes caps avatar uploads at 5 MiB.
const maxImageBytes = 5 << 20

// avatarFieldName is the multipart form field carrying the image.
const avatarFieldName = "profilePic"

// allowedImageExts is the avatar file-type allowlist, keyed by lowercase
// extension with the content type we store the object under.
var allowedImageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// avatarFromRequest extracts the optional avatar image from a multipart
// request. Returns (nil, nil) when no file was sent.
//
// Constraints enforced here, before anything reaches the services: one file
// per request, extension on the allowlist, at most 5 MiB.
func avatarFromRequest(r *http.Request) (*service.ImageUpload, error) {
	file, header, err := r.FormFile(avatarFieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperror.ValidationFailed(avatarFieldName, "could not read uploaded file")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := allowedImageExts[ext]
	if !ok {
		return nil, apperror.ValidationFailed(avatarFieldName, "only image files are allowed (jpg, jpeg, png, gif, webp)")
	}

	// Read one byte past the cap so an oversized file is distinguishable
	// from one that is exactly at it.
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, apperror.ValidationFailed(avatarFieldName, "could not read uploaded file")
	}
	if len(data) > maxImageBytes {
		return nil, apperror.ValidationFailed(avatarFieldName, "image must be 5 MiB or smaller")
	}

	return &service.ImageUpload{Data: data, ContentType: contentType}, nil
}

// isMultipart reports whether the request body is multipart/form-data.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
