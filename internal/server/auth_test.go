package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestValidateBearer(t *testing.T) {
	valid, err := IssueToken(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "alice"}).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		want   string
		err    error
	}{
		{"valid", "Bearer " + valid, "alice", nil},
		{"lowercase scheme", "bearer " + valid, "alice", nil},
		{"missing", "", "", errMissingToken},
		{"basic auth", "Basic dXNlcjpwYXNz", "", errInvalidAuthHdr},
		{"no token", "Bearer", "", errInvalidAuthHdr},
		{"garbage", "Bearer abc", "", errInvalidToken},
		{"expired", "Bearer " + expired, "", errInvalidToken},
		{"other algorithm", "Bearer " + hs512, "", errInvalidToken},
		{"no subject", "Bearer " + noSubject, "", errMissingSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := http.NewRequest(http.MethodPost, "/api/products", http.NoBody)
			if err != nil {
				t.Fatal(err)
			}
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := validateBearer(r, testSecret)
			if !errors.Is(err, tt.err) || got != tt.want {
				t.Errorf("validateBearer() = %q, %v; want %q, %v", got, err, tt.want, tt.err)
			}
		})
	}
}

func TestIssueToken(t *testing.T) {
	if _, err := IssueToken(testSecret, "", 0); !errors.Is(err, errMissingSubject) {
		t.Errorf("empty subject: err = %v", err)
	}
	tok, err := IssueToken(testSecret, "svc", 0)
	if err != nil {
		t.Fatal(err)
	}
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) { return testSecret, nil }); err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "svc" || claims.ExpiresAt != nil || claims.IssuedAt == nil {
		t.Errorf("claims = %+v", claims)
	}
}
