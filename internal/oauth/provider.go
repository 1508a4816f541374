// Package oauth drives social sign-in: it builds the provider authorize
// URLs, receives the redirect carrying the authorization code, and
// exchanges that code with the backend exactly once.
package oauth

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider is a supported OAuth authorization server.
type Provider string

const (
	Google   Provider = "google"
	GitHub   Provider = "github"
	LinkedIn Provider = "linkedin"
)

// Providers lists the supported providers.
var Providers = []Provider{Google, GitHub, LinkedIn}

// ParseProvider returns the provider named s.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported OAuth provider: %s", s)
}

// CallbackPath is where the provider redirects back to.
func (p Provider) CallbackPath() string {
	return "/auth/" + string(p) + "/callback"
}

// CodePath is the backend endpoint exchanging a code for a token.
func (p Provider) CodePath() string {
	return "/auth/" + string(p) + "/code"
}

// AuthorizeURL builds the provider's consent URL. redirectBase is the
// origin the callback path is appended to; state is echoed back on the
// redirect.
func AuthorizeURL(p Provider, clientID, redirectBase, state string) (string, error) {
	if strings.TrimSpace(clientID) == "" {
		return "", fmt.Errorf("%s: client id is not configured", p)
	}
	redirect := strings.TrimRight(redirectBase, "/") + p.CallbackPath()

	var (
		endpoint string
		q        = url.Values{}
	)
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirect)
	if state != "" {
		q.Set("state", state)
	}

	switch p {
	case Google:
		endpoint = "https://accounts.google.com/o/oauth2/v2/auth"
		q.Set("response_type", "code")
		q.Set("scope", "openid email profile")
		q.Set("access_type", "offline")
		q.Set("prompt", "consent")
	case GitHub:
		endpoint = "https://github.com/login/oauth/authorize"
		q.Set("scope", "user:email read:user")
	case LinkedIn:
		endpoint = "https://www.linkedin.com/oauth/v2/authorization"
		q.Set("response_type", "code")
		q.Set("scope", "r_emailaddress r_liteprofile")
	default:
		return "", fmt.Errorf("unsupported OAuth provider: %s", p)
	}
	return endpoint + "?" + q.Encode(), nil
}

// DevAuthorizeURL points at the development backend's stand-in consent
// endpoint instead of the real provider.
func DevAuthorizeURL(apiBase string, p Provider, redirectBase, state string) string {
	q := url.Values{}
	q.Set("redirect_uri", strings.TrimRight(redirectBase, "/")+p.CallbackPath())
	if state != "" {
		q.Set("state", state)
	}
	return strings.TrimRight(apiBase, "/") + "/dev/oauth/" + string(p) + "/authorize?" + q.Encode()
}
