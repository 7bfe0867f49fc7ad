package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/auth"
	"github.com/clubhub/backend/internal/dashboard"
	"github.com/clubhub/backend/internal/models"
)

func testRouter(ready bool) (*gin.Engine, *auth.JWTService) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	jwt := auth.NewJWTService("test-secret", 1)
	deps := Deps{
		Logger:    logger,
		JWT:       jwt,
		Auth:      &auth.Handler{},
		Dashboard: dashboard.NewHandler(nil, nil, nil, nil, nil, nil, logger),
		Ready:     func() bool { return ready },
	}
	return NewRouter(deps), jwt
}

func tokenFor(t *testing.T, jwt *auth.JWTService, role models.Role) string {
	t.Helper()
	token, err := jwt.Generate(&models.User{
		ID:    uuid.New(),
		Email: "leader@university.edu",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func do(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthGate(t *testing.T) {
	router, _ := testRouter(false)
	if rec := do(router, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("health before ready: got %d, want 503", rec.Code)
	}

	router, _ = testRouter(true)
	if rec := do(router, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health after ready: got %d, want 200", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := testRouter(true)
	paths := []string{"/me/capabilities", "/me/navigation", "/dashboard/overview", "/clubs"}
	for _, path := range paths {
		if rec := do(router, http.MethodGet, path, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: got %d, want 401", path, rec.Code)
		}
	}

	if rec := do(router, http.MethodGet, "/me/capabilities", "not-a-jwt"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d, want 401", rec.Code)
	}

	if rec := do(router, http.MethodPut, "/me/profile", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("profile update without token: got %d, want 401", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	router, _ := testRouter(true)
	if rec := do(router, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: got %d, want 404", rec.Code)
	}
}

func TestCapabilitiesEndpoint(t *testing.T) {
	router, jwt := testRouter(true)

	for _, tc := range []struct {
		role       models.Role
		canConvert bool
		canReview  bool
	}{
		{models.RoleMember, false, false},
		{models.RoleManager, true, false},
		{models.RolePrimaryAdmin, true, true},
		{models.RoleMainAdmin, false, true},
	} {
		rec := do(router, http.MethodGet, "/me/capabilities", tokenFor(t, jwt, tc.role))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: got %d, want 200", tc.role, rec.Code)
		}
		var body struct {
			Data dashboard.Capabilities `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tc.role, err)
		}
		if body.Data.Role != tc.role {
			t.Fatalf("%s: role in payload = %s", tc.role, body.Data.Role)
		}
		if body.Data.CanConvertMessageToTask != tc.canConvert {
			t.Fatalf("%s: can_convert = %v, want %v", tc.role, body.Data.CanConvertMessageToTask, tc.canConvert)
		}
		if body.Data.CanReviewTaskConversion != tc.canReview {
			t.Fatalf("%s: can_review = %v, want %v", tc.role, body.Data.CanReviewTaskConversion, tc.canReview)
		}
	}
}

func TestCapabilityGatedRoutes(t *testing.T) {
	router, jwt := testRouter(true)
	msgID := uuid.NewString()

	// Members may not propose conversions; middleware rejects before any
	// handler work happens.
	rec := do(router, http.MethodPost, "/messages/"+msgID+"/convert", tokenFor(t, jwt, models.RoleMember))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member convert: got %d, want 403", rec.Code)
	}

	// Managers may not review conversions.
	rec = do(router, http.MethodPost, "/conversions/"+msgID+"/review", tokenFor(t, jwt, models.RoleManager))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("manager review: got %d, want 403", rec.Code)
	}

	// Members may not create clubs.
	rec = do(router, http.MethodPost, "/clubs", tokenFor(t, jwt, models.RolePrimaryAdmin))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("primary_admin create club: got %d, want 403", rec.Code)
	}
}
