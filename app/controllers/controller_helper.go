package controllers

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/tubtip/tubtip/internal/pkg/apperror"
)

// ClientIP determines the client address behind Cloudflare or a reverse
// proxy, falling back to the connection address.
func ClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	return c.IP()
}

// parseBody binds a JSON or form body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.InvalidPayload("Malformed request body", err)
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.FieldValidation(name, "must be a positive integer")
	}
	return uint(id), nil
}

func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.FieldValidation(name, "must be an integer")
	}
	return v, nil
}

// optionalFile returns the uploaded file for field, or nil when absent.
func optionalFile(c *fiber.Ctx, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, nil
		}
		return nil, apperror.InvalidPayload("Malformed multipart body", err)
	}
	return fh, nil
}

// formValue returns a submitted form value, distinguishing "absent" (nil)
// from "sent empty".
func formValue(form *multipart.Form, field string) *string {
	if form == nil {
		return nil
	}
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
