package adapthttp

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"tourbook/internal/config"
)

// SSO holds the OpenID Connect client used for single sign-on.
type SSO struct {
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewSSO discovers the issuer in cfg and prepares the OAuth2 client.
func NewSSO(ctx context.Context, cfg config.OIDCConfig) (*SSO, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &SSO{
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}
