package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenService(t *testing.T, ttl time.Duration, now time.Time) *RemoteTokenService {
	t.Helper()
	s, err := NewRemoteTokenService(testSecret, ttl)
	if err != nil {
		t.Fatalf("NewRemoteTokenService: %v", err)
	}
	s.now = func() time.Time { return now }
	return s
}

func TestNewRemoteTokenService_WeakSecret(t *testing.T) {
	_, err := NewRemoteTokenService("short", time.Hour)
	if !errors.Is(err, ErrWeakSecret) {
		t.Errorf("err = %v, want ErrWeakSecret", err)
	}
}

func TestNewRemoteTokenService_DefaultTTL(t *testing.T) {
	s, err := NewRemoteTokenService(testSecret, 0)
	if err != nil {
		t.Fatalf("NewRemoteTokenService: %v", err)
	}
	if s.ttl != 12*time.Hour {
		t.Errorf("ttl = %v, want 12h", s.ttl)
	}
}

func TestRemoteToken_IssueAndValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newTestTokenService(t, time.Hour, now)

	tok, err := s.Issue("Worship Leader iPad")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.DeviceID == "" || tok.Token == "" {
		t.Fatalf("empty token or device id: %+v", tok)
	}
	if !tok.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, now.Add(time.Hour))
	}

	claims, err := s.Validate(tok.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.DeviceID() != tok.DeviceID {
		t.Errorf("DeviceID = %q, want %q", claims.DeviceID(), tok.DeviceID)
	}
	if claims.DeviceName != "Worship Leader iPad" {
		t.Errorf("DeviceName = %q", claims.DeviceName)
	}
}

func TestRemoteToken_UniqueDevices(t *testing.T) {
	s := newTestTokenService(t, time.Hour, time.Now())
	a, _ := s.Issue("a")
	b, _ := s.Issue("b")
	if a.DeviceID == b.DeviceID {
		t.Error("two pairings share a device id")
	}
}

func TestRemoteToken_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newTestTokenService(t, time.Hour, now)
	tok, err := s.Issue("phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := s.Validate(tok.Token); !errors.Is(err, ErrInvalidRemoteToken) {
		t.Errorf("err = %v, want ErrInvalidRemoteToken", err)
	}
}

func TestRemoteToken_Rejects(t *testing.T) {
	now := time.Now()
	s := newTestTokenService(t, time.Hour, now)
	tok, err := s.Issue("phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewRemoteTokenService(strings.Repeat("x", 40), time.Hour)
	if err != nil {
		t.Fatalf("NewRemoteTokenService: %v", err)
	}
	foreign, _ := other.Issue("phone")

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &RemoteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    remoteTokenIssuer,
			Subject:   "device",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &RemoteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "device",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &RemoteClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: remoteTokenIssuer, Subject: "device"},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"空", ""},
		{"ゴミ", "not.a.jwt"},
		{"改ざん", tok.Token + "x"},
		{"別の鍵", foreign.Token},
		{"alg none", noneToken},
		{"発行者違い", wrongIssuer},
		{"期限なし", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Validate(tt.token); !errors.Is(err, ErrInvalidRemoteToken) {
				t.Errorf("Validate error = %v, want ErrInvalidRemoteToken", err)
			}
		})
	}
}
