package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Claims represents the JWT claims for caller tokens. The subject is the
// checksummed principal address the token authenticates as.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTService issues and validates caller tokens for the hook and admin
// endpoints. HS256 with a shared signing key: the mechanism deployment and
// the referrer are provisioned with tokens out-of-band.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateCallerToken issues a token whose subject is the given principal.
func (s *JWTService) GenerateCallerToken(caller id.Address, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Hex(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a caller token, returning the principal
// it authenticates as.
func (s *JWTService) ValidateToken(tokenString string) (id.Address, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.ZeroAddress, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.ZeroAddress, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return id.ZeroAddress, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return id.ZeroAddress, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}

	caller, err := id.ParseAddress(claims.Subject)
	if err != nil {
		return id.ZeroAddress, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a principal address")
	}
	return caller, nil
}
