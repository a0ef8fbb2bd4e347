package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "op@example.com", []string{"editor", "operator"}, "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseAccessToken(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject: got %s", claims.Subject)
	}
	if claims.Email != "op@example.com" {
		t.Fatalf("email: got %s", claims.Email)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "editor" {
		t.Fatalf("roles: got %v", claims.Roles)
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "", nil, "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseAccessToken(token, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestAccessTokenExpired(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(signed, "secret"); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword("hunter2", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestUserContextRoles(t *testing.T) {
	u := &UserContext{ID: "u", Roles: []string{"editor"}}
	if !u.HasRole("editor") || u.HasRole("admin") || u.IsAdmin() {
		t.Fatalf("role checks wrong for %v", u.Roles)
	}
	admin := &UserContext{ID: "a", Roles: []string{"admin"}}
	if !admin.IsAdmin() {
		t.Fatal("admin not detected")
	}
}
