package filmapi

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// identityClaims are the display-profile fields carried by a Google ID token.
type identityClaims struct {
	Name    string
	Email   string
	Picture string
}

// parseIdentity extracts profile claims from an ID token without verifying
// its signature. The catalog service verifies the token during the exchange;
// locally the claims are used for display only.
func parseIdentity(idToken string) (identityClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return identityClaims{}, fmt.Errorf("parsing identity token: %w", err)
	}

	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}

	return identityClaims{
		Name:    str("name"),
		Email:   str("email"),
		Picture: str("picture"),
	}, nil
}
