// Package apiv1 carries the OpenAPI description of the /api/v1 surface.
package apiv1

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Prefix is where the described paths are mounted.
const Prefix = "/api/v1"

//go:embed openapi.yml
var document []byte

// Document returns the raw OpenAPI YAML.
func Document() []byte {
	return document
}

// Load parses and validates the document.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}
