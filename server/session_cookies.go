package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-account-service/token"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// attachTokens delivers both tokens as HttpOnly, Secure cookies. Each cookie
// lives as long as the token inside it.
func (s *Server) attachTokens(w http.ResponseWriter, pair token.Pair) {
	http.SetCookie(w, tokenCookie(accessTokenCookie, pair.AccessToken, s.config.GetAccessTokenExpiry()))
	http.SetCookie(w, tokenCookie(refreshTokenCookie, pair.RefreshToken, s.config.GetRefreshTokenExpiry()))
}

// clearTokens expires both cookies on the client.
func (s *Server) clearTokens(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		c := tokenCookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func tokenCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		// Cross-site frontends must be able to send the cookies back.
		SameSite: http.SameSiteNoneMode,
	}
}

// refreshTokenFromRequest reads the refresh token from its cookie, falling
// back to a JSON body field. An empty result means none was presented.
func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.RefreshToken)
}

// accessTokenFromRequest reads the access token from its cookie, falling back
// to an "Authorization: Bearer" header.
func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
