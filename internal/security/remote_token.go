package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// remoteTokenIssuer はリモートトークンのiss。
const remoteTokenIssuer = "stagecast"

// minSecretLen は署名鍵の最小長。
const minSecretLen = 32

var (
	// ErrInvalidRemoteToken はトークンの署名・期限・発行者のいずれかが不正な場合のエラー。
	ErrInvalidRemoteToken = errors.New("invalid remote token")
	// ErrWeakSecret は署名鍵が短すぎる場合のエラー。
	ErrWeakSecret = fmt.Errorf("remote token secret must be at least %d bytes", minSecretLen)
)

// RemoteClaims はペアリングしたリモコン端末のトークンに含める情報。
// SubjectにデバイスIDを入れる。
type RemoteClaims struct {
	jwt.RegisteredClaims
	DeviceName string `json:"device_name"`
}

// DeviceID はトークンのデバイスIDを返す。
func (c *RemoteClaims) DeviceID() string {
	return c.Subject
}

// RemoteToken はペアリング時に発行したトークン。
type RemoteToken struct {
	Token      string    `json:"token"`
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// RemoteTokenService はリモコン用トークンの発行と検証を行う。HS256固定。
type RemoteTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewRemoteTokenService はRemoteTokenServiceを生成する。
// 署名鍵が短すぎる場合はErrWeakSecretを返す。
func NewRemoteTokenService(secret string, ttl time.Duration) (*RemoteTokenService, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RemoteTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue は新しいデバイスIDでトークンを発行する。
func (s *RemoteTokenService) Issue(deviceName string) (*RemoteToken, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	deviceID := uuid.NewString()

	claims := &RemoteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    remoteTokenIssuer,
			Subject:   deviceID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DeviceName: deviceName,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign remote token: %w", err)
	}

	return &RemoteToken{
		Token:      signed,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		ExpiresAt:  expiresAt.Truncate(time.Second),
	}, nil
}

// Validate はトークンを検証してクレームを返す。
// 失敗理由にかかわらずErrInvalidRemoteTokenでラップしたエラーを返す。
func (s *RemoteTokenService) Validate(token string) (*RemoteClaims, error) {
	claims := &RemoteClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(remoteTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRemoteToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidRemoteToken
	}
	return claims, nil
}
