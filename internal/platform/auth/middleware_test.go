package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func doRequest(t *testing.T, mw echo.MiddlewareFunc, setup func(*http.Request)) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID, gotRole string
	handler := func(c echo.Context) error {
		gotID = UserIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}

	err := mw(handler)(c)
	if err != nil {
		c.Error(err)
	}
	return rec, gotID, gotRole
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token, err := Sign(testSecret, "patient-1", RolePatient, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec, gotID, gotRole := doRequest(t, JWTMiddleware(testSecret), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != "patient-1" {
		t.Errorf("expected subject patient-1, got %s", gotID)
	}
	if gotRole != RolePatient {
		t.Errorf("expected role patient, got %s", gotRole)
	}
}

func TestJWTMiddleware_TokenQueryParam(t *testing.T) {
	token, err := Sign(testSecret, "doctor-9", RoleDoctor, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID string
	handler := func(c echo.Context) error {
		gotID = UserIDFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}
	if err := JWTMiddleware(testSecret)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != "doctor-9" {
		t.Errorf("expected doctor-9, got %s", gotID)
	}
}

func TestJWTMiddleware_MissingToken(t *testing.T) {
	rec, _, _ := doRequest(t, JWTMiddleware(testSecret), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	token, err := Sign([]byte("other-secret"), "patient-1", RolePatient, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec, _, _ := doRequest(t, JWTMiddleware(testSecret), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	token, err := Sign(testSecret, "patient-1", RolePatient, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec, _, _ := doRequest(t, JWTMiddleware(testSecret), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestDevAuthMiddleware_Defaults(t *testing.T) {
	rec, gotID, gotRole := doRequest(t, DevAuthMiddleware(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != "dev-user" || gotRole != RoleAdmin {
		t.Errorf("expected dev-user/admin, got %s/%s", gotID, gotRole)
	}
}

func TestDevAuthMiddleware_HeaderOverride(t *testing.T) {
	_, gotID, gotRole := doRequest(t, DevAuthMiddleware(), func(r *http.Request) {
		r.Header.Set("X-Dev-User", "patient-7")
		r.Header.Set("X-Dev-Role", RolePatient)
	})
	if gotID != "patient-7" || gotRole != RolePatient {
		t.Errorf("expected patient-7/patient, got %s/%s", gotID, gotRole)
	}
}
