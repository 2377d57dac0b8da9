package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-reservations/internal/models"
)

// OIDCVerifier checks tokens against the issuer's published keys. The audience
// is not checked because tokens are shared across the platform's services.
type OIDCVerifier struct {
	verifier  *oidc.IDTokenVerifier
	roleClaim string
}

func NewOIDCVerifier(ctx context.Context, issuer, roleClaim string) (*OIDCVerifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("OIDC_ISSUER must be set for oidc auth")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &OIDCVerifier{
		verifier:  provider.Verifier(&oidc.Config{SkipClientIDCheck: true}),
		roleClaim: roleClaim,
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (models.Principal, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	claims := map[string]interface{}{}
	if err := idToken.Claims(&claims); err != nil {
		return models.Principal{}, fmt.Errorf("failed to parse claims: %w", err)
	}
	return principalFromClaims(claims, v.roleClaim)
}
