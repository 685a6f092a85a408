package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseClaimsExtractsIdentityAndRoles(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":                "user-1",
		"name":               "Dr. Fulan",
		"preferred_username": "dosen1",
		"email":              "fulan@kampus.ac.id",
		"realm_access":       map[string]any{"roles": []string{"dosen", "offline_access"}},
	})

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("parse claims: %v", err)
	}
	if claims.Subject != "user-1" || claims.Name != "Dr. Fulan" || claims.Email != "fulan@kampus.ac.id" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.HasRole("dosen") {
		t.Fatal("dosen role not extracted")
	}
	if claims.HasRole("mahasiswa") {
		t.Fatal("phantom role")
	}
}

func TestParseClaimsMissingRealmAccess(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "user-1", "preferred_username": "dosen1"})

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("parse claims: %v", err)
	}
	if len(claims.Roles) != 0 {
		t.Fatalf("roles = %v, want none", claims.Roles)
	}
	if claims.HasRole("dosen") {
		t.Fatal("HasRole must be false without realm_access")
	}
}

func TestDisplayNameFallsBackToUsername(t *testing.T) {
	withName, err := ParseClaims(signToken(t, jwt.MapClaims{
		"name": "Dr. Fulan", "preferred_username": "dosen1",
	}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := withName.DisplayName(); got != "Dr. Fulan" {
		t.Fatalf("display name = %q", got)
	}

	withoutName, err := ParseClaims(signToken(t, jwt.MapClaims{
		"preferred_username": "dosen1",
	}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := withoutName.DisplayName(); got != "dosen1" {
		t.Fatalf("display name fallback = %q", got)
	}
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	if _, err := ParseClaims("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
