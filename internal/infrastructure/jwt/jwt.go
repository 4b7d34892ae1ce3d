package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Service validates the bearer tokens issued by the identity provider. The
// owner of every media operation is the token's owner_id claim.
type Service struct {
	jwtSecret string
}

func New(jwtSecret string) *Service { return &Service{jwtSecret: jwtSecret} }

type Claims struct {
	OwnerID string `json:"owner_id"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT signs a token for ownerID. Production tokens come from the
// identity provider; this is used by tooling and tests.
func (s *Service) GenerateJWT(ownerID, role string, expiresIn time.Duration) (string, error) {
	claims := Claims{
		OwnerID: ownerID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.OwnerID == "" {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
