package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ms-reservations/internal/models"
)

// Verifier turns a raw bearer token into the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (models.Principal, error)
}

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// HMACVerifier validates HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret    []byte
	roleClaim string
}

func NewHMACVerifier(secret, roleClaim string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET must be set for hmac auth")
	}
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &HMACVerifier{secret: []byte(secret), roleClaim: roleClaim}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, rawToken string) (models.Principal, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return models.Principal{}, errors.New("invalid token")
	}
	return principalFromClaims(claims, v.roleClaim)
}

// SignHMAC issues an HS256 token for p. It backs local development and tests;
// production tokens come from the identity provider.
func SignHMAC(secret string, p models.Principal, roleClaim string, ttl time.Duration) (string, error) {
	if roleClaim == "" {
		roleClaim = "role"
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     p.UserID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
		roleClaim: string(p.Role),
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// principalFromClaims reads sub, email and the role. The role claim may be a
// string or a list; a Keycloak realm_access.roles list is also honoured. Anything
// unrecognised is a participant.
func principalFromClaims(claims map[string]interface{}, roleClaim string) (models.Principal, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.Principal{}, errors.New("subject claim not found in token")
	}
	email, _ := claims["email"].(string)

	role := models.RoleParticipant
	candidates := claimStrings(claims[roleClaim])
	if realm, ok := claims["realm_access"].(map[string]interface{}); ok {
		candidates = append(candidates, claimStrings(realm["roles"])...)
	}
	for _, c := range candidates {
		if r, ok := models.ParseRole(c); ok && r == models.RoleAdmin {
			role = models.RoleAdmin
			break
		}
	}

	return models.Principal{UserID: sub, Email: email, Role: role}, nil
}

func claimStrings(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}
