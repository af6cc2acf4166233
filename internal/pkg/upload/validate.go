package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tubtip/tubtip/internal/pkg/apperror"
)

// MaxImageSize is the largest accepted profile asset.
const MaxImageSize = 5 << 20

// Asset roles used as the middle segment of object keys.
const (
	RoleProfilePicture = "profile_picture"
	RoleProfileBanner  = "profile_banner"
)

var allowedMime = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Image is a validated upload held in memory so it can be read again.
type Image struct {
	Body        []byte
	ContentType string
	Ext         string
}

// ValidateImage reads an uploaded file and checks its size and type. Both
// the declared content type and the sniffed bytes must be an allowed image
// type. Failures are reported against field.
func ValidateImage(field string, header *multipart.FileHeader) (*Image, error) {
	if header == nil {
		return nil, apperror.FieldValidation(field, "file required")
	}
	if header.Size > MaxImageSize {
		return nil, apperror.FieldValidation(field, "File too large. Maximum size is 5MB")
	}

	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(header.Header.Get("Content-Type"), ";", 2)[0]))
	if _, ok := allowedMime[declared]; !ok {
		return nil, apperror.FieldValidation(field, "Only JPEG, PNG and WEBP images are allowed")
	}

	f, err := header.Open()
	if err != nil {
		return nil, apperror.InvalidPayload("could not read upload", err)
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
	if err != nil {
		return nil, apperror.InvalidPayload("could not read upload", err)
	}
	if len(body) > MaxImageSize {
		return nil, apperror.FieldValidation(field, "File too large. Maximum size is 5MB")
	}
	if len(body) == 0 {
		return nil, apperror.FieldValidation(field, "file is empty")
	}

	detected := http.DetectContentType(body)
	ext, ok := allowedMime[detected]
	if !ok {
		return nil, apperror.FieldValidation(field, "Only JPEG, PNG and WEBP images are allowed")
	}
	return &Image{Body: body, ContentType: detected, Ext: ext}, nil
}

// ObjectKey builds a collision-free key: {accountID}/{role}/{uuid}{ext}.
func ObjectKey(accountID uint, role, ext string) string {
	return fmt.Sprintf("%d/%s/%s%s", accountID, role, uuid.NewString(), ext)
}
