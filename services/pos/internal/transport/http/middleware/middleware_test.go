package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sakashimaa/pos-engine/pkg/auth"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(NewRequestIDMiddleware())
	app.Get("/me", NewAuthMiddleware(secret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"staff_id": c.Locals(LocalStaffID),
			"role":     c.Locals(LocalRole),
		})
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	valid, err := auth.GenerateToken(secret, 7, "waiter", time.Minute)
	require.NoError(t, err)

	foreign, err := auth.GenerateToken("other-secret", 7, "waiter", time.Minute)
	require.NoError(t, err)

	expired, err := auth.GenerateToken(secret, 7, "waiter", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + valid, fiber.StatusOK},
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, fiber.StatusUnauthorized},
		{"foreign signature", "Bearer " + foreign, fiber.StatusUnauthorized},
		{"expired", "Bearer " + expired, fiber.StatusUnauthorized},
	}

	app := newApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
	require.NoError(t, err)

	minted := resp.Header.Get(HeaderRequestID)
	_, err = uuid.Parse(minted)
	require.NoError(t, err)

	given := uuid.NewString()
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(HeaderRequestID, given)

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, given, resp.Header.Get(HeaderRequestID))

	req = httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.NotEqual(t, "not-a-uuid", resp.Header.Get(HeaderRequestID))
}
