package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func errorFromGet(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body.Error
}

func TestErrorMiddlewareMapsDomainCodes(t *testing.T) {
	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop(), nil))
	app.Get("/stale", func(*fiber.Ctx) error { return apperrors.NewStaleWrite("ticket") })
	app.Get("/transition", func(*fiber.Ctx) error {
		return apperrors.NewInvalidTransition("closed", "resolved")
	})
	app.Get("/missing", func(*fiber.Ctx) error { return apperrors.NewNotFound("ticket", nil) })

	status, errBody := errorFromGet(t, app, "/stale")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperrors.CodeStaleWrite, errBody["code"])
	assert.Equal(t, true, errBody["retryable"])

	status, errBody = errorFromGet(t, app, "/transition")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperrors.CodeInvalidTransition, errBody["code"])
	assert.NotContains(t, errBody, "retryable")

	status, errBody = errorFromGet(t, app, "/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errBody["code"])
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop(), nil))
	app.Get("/boom", func(*fiber.Ctx) error { panic("kaput") })

	status, errBody := errorFromGet(t, app, "/boom")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternalError, errBody["code"])
}
