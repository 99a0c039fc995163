package jwttoken

import (
	"errors"
	"fmt"
	"slices"
	"time"

	dErrors "voicedesk/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scopes granted to the conversational runtime and the operator dashboard.
const (
	ScopeCalls       = "calls"
	ScopeEvaluations = "evaluations"
	ScopeDashboard   = "dashboard"
)

var knownScopes = []string{ScopeCalls, ScopeEvaluations, ScopeDashboard}

// Claims represents the JWT claims carried by runtime service tokens.
type Claims struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateServiceToken issues a token for a runtime worker.
func (s *JWTService) GenerateServiceToken(clientID string, scopes []string, expiresIn time.Duration) (string, error) {
	if clientID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "client id is required")
	}
	if len(scopes) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "at least one scope is required")
	}
	for _, scope := range scopes {
		if !slices.Contains(knownScopes, scope) {
			return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown scope %q", scope))
		}
	}
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ClientID: clientID,
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ClientID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
