package upload

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubtip/tubtip/internal/pkg/apperror"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// fileHeader round-trips a file through a multipart form so Open works.
func fileHeader(t *testing.T, contentType string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="profile_picture"; filename="a.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["profile_picture"][0]
}

func TestValidateImage(t *testing.T) {
	img, err := ValidateImage("profile_picture", fileHeader(t, "image/png", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Ext)
	assert.Equal(t, pngHeader, img.Body)
}

func TestValidateImageRejects(t *testing.T) {
	tests := map[string]struct {
		contentType string
		body        []byte
	}{
		"declared gif": {"image/gif", []byte("GIF89a......")},
		"html as png":  {"image/png", []byte("<html><script>alert(1)</script></html>")},
		"svg":          {"image/svg+xml", []byte("<svg xmlns='http://www.w3.org/2000/svg'/>")},
		"empty":        {"image/png", nil},
		"too large":    {"image/png", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxImageSize)...)},
		"missing type": {"", pngHeader},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateImage("profile_picture", fileHeader(t, tc.contentType, tc.body))
			require.ErrorIs(t, err, apperror.ErrFieldValidation)
			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "profile_picture", appErr.Fields[0].Field)
		})
	}

	_, err := ValidateImage("profile_banner", nil)
	assert.ErrorIs(t, err, apperror.ErrFieldValidation)
}

func TestObjectKey(t *testing.T) {
	a := ObjectKey(7, RoleProfileBanner, ".webp")
	b := ObjectKey(7, RoleProfileBanner, ".webp")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "7/profile_banner/"))
	assert.True(t, strings.HasSuffix(a, ".webp"))
}
