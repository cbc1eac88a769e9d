package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", "trial-funnel")

	token, err := svc.GenerateToken("ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	op, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if op.Subject != "ops@example.com" || op.Role != "operator" {
		t.Errorf("operator = %+v", op)
	}
}

func TestGenerateRequiresSubject(t *testing.T) {
	if _, err := NewJWTService("secret", "x").GenerateToken("", time.Hour); err == nil {
		t.Error("expected error for empty subject")
	}
}

func TestValidateRejectsWrongSecretAndIssuer(t *testing.T) {
	token, err := NewJWTService("secret", "trial-funnel").GenerateToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := NewJWTService("other", "trial-funnel").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: err = %v", err)
	}
	if _, err := NewJWTService("secret", "someone-else").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong issuer: err = %v", err)
	}
	if _, err := NewJWTService("secret", "trial-funnel").ValidateToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestValidateExpired(t *testing.T) {
	svc := NewJWTService("secret", "trial-funnel")
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	token, err := svc.GenerateToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestValidateRejectsOtherRoles(t *testing.T) {
	claims := Claims{
		Role: "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			Issuer:    "trial-funnel",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewJWTService("secret", "trial-funnel").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
