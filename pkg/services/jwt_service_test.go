package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")
	userID := uuid.New()

	token, err := svc.GenerateToken(userID, "ada@example.com", "ada")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != userID || claims.Email != "ada@example.com" || claims.Subject != userID.String() {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewJWTService("test-secret")
	token, _ := svc.GenerateToken(uuid.New(), "ada@example.com", "ada")

	if _, err := NewJWTService("other-secret").ValidateToken(token); err == nil {
		t.Error("token signed with another secret was accepted")
	}

	expired := NewJWTService("test-secret")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, _ := expired.GenerateToken(uuid.New(), "old@example.com", "old")
	if _, err := svc.ValidateToken(old); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expired token error = %v, want ErrTokenExpired", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.New()})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := svc.ValidateToken(unsigned); err == nil {
		t.Error("unsigned token was accepted")
	}

	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token was accepted")
	}
}
