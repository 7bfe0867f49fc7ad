package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/clubhub/backend/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	user := &models.User{ID: uuid.New(), Email: "leader@university.edu", Role: models.RolePrimaryAdmin}

	token, err := svc.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Role != user.Role {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "member@university.edu", Role: models.RoleMember}
	token, err := NewJWTService("secret-a", 1).Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTService("secret-b", 1).Validate(token); err == nil {
		t.Fatalf("expected validation failure with wrong secret")
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	if _, err := NewJWTService("secret", 1).Validate("not-a-token"); err == nil {
		t.Fatalf("expected validation failure")
	}
}
