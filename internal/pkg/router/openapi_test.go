package router

import (
	"context"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/tubtip/tubtip/internal/api/v1"
)

var routeParam = regexp.MustCompile(`:([A-Za-z_]+)`)

func TestEveryRouteIsDocumented(t *testing.T) {
	doc, err := apiv1.Load(context.Background())
	require.NoError(t, err)
	h := newHarness(t)

	seen := 0
	for _, route := range h.app.GetRoutes(true) {
		if route.Method == "HEAD" || !strings.HasPrefix(route.Path, apiv1.Prefix+"/") {
			continue
		}
		path := strings.TrimPrefix(route.Path, apiv1.Prefix)
		if len(path) > 1 {
			path = strings.TrimRight(path, "/")
		}
		path = routeParam.ReplaceAllString(path, "{$1}")

		item := doc.Paths.Value(path)
		if !assert.NotNil(t, item, "%s %s is not documented", route.Method, path) {
			continue
		}
		assert.NotNil(t, item.GetOperation(route.Method), "%s %s has no operation", route.Method, path)
		seen++
	}
	assert.GreaterOrEqual(t, seen, 20)
}

func TestDocsServed(t *testing.T) {
	h := newHarness(t)
	resp, err := h.app.Test(httptest.NewRequest("GET", "/docs/api/v1", nil))
	require.NoError(t, err)
	assert.Less(t, resp.StatusCode, 400)
}
