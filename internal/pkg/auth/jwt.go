package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWT errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid token format")
)

// JWTConfig defines JWT configuration settings
type JWTConfig struct {
	SecretKey   string
	TokenExp    time.Duration
	TokenIssuer string
}

// JWTService handles JWT operations
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{
		config: config,
	}
}

// Claims defines the session token content. The active school/child context
// is mirrored in the server-side session row, which stays authoritative
// after a context switch; AuthorizedSchools is fixed for the token lifetime.
type Claims struct {
	UserID            string   `json:"userId"`
	Role              string   `json:"role"`
	SchoolID          string   `json:"schoolId"`
	StudentID         string   `json:"studentId,omitempty"`
	AuthorizedSchools []string `json:"authorizedSchools"`
	jwt.RegisteredClaims
}

// AuthorizedFor reports whether the token allows acting in the given school.
func (c *Claims) AuthorizedFor(schoolID string) bool {
	for _, id := range c.AuthorizedSchools {
		if id == schoolID {
			return true
		}
	}
	return false
}

// SessionToken is a freshly signed token plus its identifiers
type SessionToken struct {
	Token     string
	SessionID string // jti claim, shared with the auth_sessions row
	ExpiresAt time.Time
}

// GenerateToken creates a signed session token
func (s *JWTService) GenerateToken(userID, role, schoolID, studentID string, authorizedSchools []string) (*SessionToken, error) {
	expiry := time.Now().Add(s.config.TokenExp)
	sessionID := uuid.New().String()

	// Create claims
	claims := &Claims{
		UserID:            userID,
		Role:              role,
		SchoolID:          schoolID,
		StudentID:         studentID,
		AuthorizedSchools: authorizedSchools,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    s.config.TokenIssuer,
			Subject:   userID,
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &SessionToken{
		Token:     signed,
		SessionID: sessionID,
		ExpiresAt: expiry,
	}, nil
}

// ValidateToken validates a token
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	// Parse token
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	// Get claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// TokenExpiry returns the configured session token lifetime.
func (s *JWTService) TokenExpiry() time.Duration {
	return s.config.TokenExp
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidFormat
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), nil
	}

	// Otherwise just return the entire header value as the token
	return authHeader, nil
}

// ValidateAndExtractClaims validates and extracts claims from a token string
func (s *JWTService) ValidateAndExtractClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.UserID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
