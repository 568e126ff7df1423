package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newAuthApp(handler fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/protected", handler, func(c *fiber.Ctx) error {
		key, _ := c.Locals("apiKey").(string)
		return c.SendString("ok:" + key)
	})
	return app
}

func statusOf(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestNewAuth(t *testing.T) {
	app := newAuthApp(NewAuth(AuthConfig{Validator: KeySet([]string{"k1", "k2"})}))

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"header key", "X-API-Key", "k2", http.StatusOK},
		{"bearer in header", "X-API-Key", "Bearer k1", http.StatusOK},
		{"authorization fallback", "Authorization", "Bearer k1", http.StatusOK},
		{"wrong key", "X-API-Key", "k3", http.StatusUnauthorized},
		{"empty bearer", "Authorization", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			if got := statusOf(t, app, req); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewAuthValidatorError(t *testing.T) {
	app := newAuthApp(NewAuth(AuthConfig{
		Validator: func(string) (bool, error) { return false, errors.New("key store down") },
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-Key", "anything")
	if got := statusOf(t, app, req); got != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", got)
	}
}

func TestNewAuthNext(t *testing.T) {
	app := newAuthApp(NewAuth(AuthConfig{
		Validator: KeySet(nil),
		Next:      func(c *fiber.Ctx) bool { return c.Query("public") == "1" },
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected?public=1", nil)
	if got := statusOf(t, app, req); got != http.StatusOK {
		t.Errorf("skipped status = %d, want 200", got)
	}
}

func TestNewAuthRequiresValidator(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic without a validator")
		}
	}()
	NewAuth(AuthConfig{})
}

func TestKeySetIgnoresEmptyKeys(t *testing.T) {
	valid := KeySet([]string{"", "secret"})

	if ok, _ := valid(""); ok {
		t.Error("empty key accepted")
	}
	if ok, _ := valid("secret"); !ok {
		t.Error("configured key rejected")
	}
}

func TestAdminOnly(t *testing.T) {
	tests := []struct {
		name     string
		adminKey string
		sent     string
		want     int
	}{
		{"disabled", "", "anything", http.StatusForbidden},
		{"missing key", "root", "", http.StatusUnauthorized},
		{"wrong key", "root", "user", http.StatusForbidden},
		{"admin key", "root", "root", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAuthApp(AdminOnly(tt.adminKey))
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.sent != "" {
				req.Header.Set("X-API-Key", tt.sent)
			}
			if got := statusOf(t, app, req); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
