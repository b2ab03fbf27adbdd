package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func runRequireRole(t *testing.T, session *Session, required ...Role) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if session != nil {
		ctx := context.WithValue(req.Context(), SessionKey, session)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireRole(required...)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec.Code
}

func sessionWith(role Role) *Session {
	return &Session{
		UserID:     uuid.New(),
		Roles:      RoleList{role},
		ActiveRole: role,
	}
}

func TestRequireRole_Allows(t *testing.T) {
	if code := runRequireRole(t, sessionWith(RoleDoctor), RoleDoctor); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestRequireRole_AllowsAnyListed(t *testing.T) {
	if code := runRequireRole(t, sessionWith(RoleModerator), RoleModerator, RoleAdmin); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestRequireRole_Anonymous(t *testing.T) {
	if code := runRequireRole(t, nil, RoleUser); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestRequireRole_Insufficient(t *testing.T) {
	if code := runRequireRole(t, sessionWith(RoleUser), RoleAdmin); code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", code)
	}
}

func TestRequireRole_NoImplicitAdminBypass(t *testing.T) {
	// Admin is not admitted to doctor-only routes unless listed.
	if code := runRequireRole(t, sessionWith(RoleAdmin), RoleDoctor); code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", code)
	}
}

func TestRequireRole_EmptyRequirementDenies(t *testing.T) {
	if code := runRequireRole(t, sessionWith(RoleAdmin)); code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", code)
	}
}
