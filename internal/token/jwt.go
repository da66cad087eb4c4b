// Package token validates (and, for tests and local development, issues) the
// identity tokens the external account system hands members.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "cinematch/pkg/domain"

	dErrors "cinematch/pkg/domain-errors"
)

// Claims are the JWT claims carried by member identity tokens.
type Claims struct {
	MemberID string `json:"member_id"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateToken issues a signed member token. Production identities come from
// the account system; this is used by tests and the local dev flow.
func (s *JWTService) GenerateToken(memberID id.MemberID, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		MemberID: memberID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	return newToken.SignedString(s.signingKey)
}

// ValidateToken checks the signature and expiry and returns the member the
// token belongs to.
func (s *JWTService) ValidateToken(tokenString string) (id.MemberID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.MemberID{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.MemberID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return id.MemberID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	memberID, err := id.ParseMemberID(claims.MemberID)
	if err != nil {
		return id.MemberID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return memberID, nil
}
