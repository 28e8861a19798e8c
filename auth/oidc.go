// Package auth verifies OpenID Connect ID tokens and maps them onto
// participant ids. Room membership is keyed by these ids, so the mapping has
// to be stable: the configured identity claim is canonicalized the same way on
// every login.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/globals"
)

const defaultIdentityClaim = "email"

// providerFor returns the configured provider with the given name, nil if none
// matches.
func providerFor(cfg *config.Config, name string) *config.OIDCConfig {
	for i := range cfg.OIDCConfigs {
		if cfg.OIDCConfigs[i].Name == name {
			return &cfg.OIDCConfigs[i]
		}
	}
	return nil
}

// participantFromClaims extracts the identity claim and canonicalizes it into
// the participant id stored in the room's member set (trimmed, lower case).
func participantFromClaims(claims map[string]interface{}, claim string) (string, error) {
	raw, ok := claims[claim]
	if !ok {
		return "", fmt.Errorf("token carries no %q claim", claim)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("claim %q is not a string", claim)
	}
	id := strings.ToLower(strings.TrimSpace(val))
	if id == "" {
		return "", fmt.Errorf("claim %q is empty", claim)
	}
	return id, nil
}

// Authenticate verifies the presented ID token against the named provider and
// returns the participant id taken from the provider's identity claim. An
// empty id with no error means no provider matched; the caller falls back to
// its unauthenticated handling.
func Authenticate(idToken, providerName string, cfg *config.Config) (string, error) {
	if idToken == "" || len(cfg.OIDCConfigs) == 0 {
		return "", nil
	}
	oc := providerFor(cfg, providerName)
	if oc == nil {
		globals.AppLogger.Debug("unknown oidc provider", "provider", providerName)
		return "", nil
	}

	ctx := context.Background()
	provider, err := oidc.NewProvider(ctx, oc.ProviderUrl)
	if err != nil {
		return "", err
	}
	verifierConf := &oidc.Config{ClientID: oc.ClientId}
	if oc.ClientId == "" {
		verifierConf.SkipClientIDCheck = true
	}
	token, err := provider.Verifier(verifierConf).Verify(ctx, idToken)
	if err != nil {
		globals.AppLogger.Error("id token rejected", "provider", providerName, "error", err)
		return "", err
	}

	claims := make(map[string]interface{})
	if err := token.Claims(&claims); err != nil {
		return "", err
	}
	claim := oc.Claim
	if claim == "" {
		claim = defaultIdentityClaim
	}
	return participantFromClaims(claims, claim)
}
