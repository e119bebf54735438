package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestJWTService(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:   "test-secret",
		TokenExp:    exp,
		TokenIssuer: "test-issuer",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestJWTService(time.Hour)

	token, err := svc.GenerateToken("user-1", "STUDENT", "school-1", "", []string{"school-1", "school-2"})
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if token.Token == "" || token.SessionID == "" {
		t.Fatal("token and session id must be set")
	}

	claims, err := svc.ValidateAndExtractClaims(token.Token)
	if err != nil {
		t.Fatalf("ValidateAndExtractClaims returned error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected userID user-1, got %q", claims.UserID)
	}
	if claims.Role != "STUDENT" {
		t.Fatalf("expected role STUDENT, got %q", claims.Role)
	}
	if claims.SchoolID != "school-1" {
		t.Fatalf("expected schoolID school-1, got %q", claims.SchoolID)
	}
	if claims.ID != token.SessionID {
		t.Fatal("jti must match the issued session id")
	}
	if !claims.AuthorizedFor("school-2") {
		t.Fatal("token should authorize school-2")
	}
	if claims.AuthorizedFor("school-9") {
		t.Fatal("token must not authorize an unlisted school")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newTestJWTService(-time.Minute)

	token, err := svc.GenerateToken("user-1", "STUDENT", "school-1", "", []string{"school-1"})
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	_, err = svc.ValidateAndExtractClaims(token.Token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := newTestJWTService(time.Hour).GenerateToken("user-1", "STUDENT", "school-1", "", []string{"school-1"})
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	other := NewJWTService(JWTConfig{SecretKey: "different-secret", TokenExp: time.Hour, TokenIssuer: "test-issuer"})
	if _, err := other.ValidateAndExtractClaims(token.Token); err == nil {
		t.Fatal("token signed with another secret must not validate")
	}
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("ExtractBearerToken returned error: %v", err)
	}
	if token != "abc.def.ghi" {
		t.Fatalf("unexpected token %q", token)
	}

	if _, err := ExtractBearerToken(""); err == nil {
		t.Fatal("empty header must be rejected")
	}
}
