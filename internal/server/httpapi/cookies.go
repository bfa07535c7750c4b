package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/cartkeeper/internal/common"
	"github.com/dmitrijs2005/cartkeeper/internal/server/auth"
)

func sessionCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	}
}

func setSessionCookies(w http.ResponseWriter, pair *auth.TokenPair) {
	access := sessionCookie(common.AccessTokenCookieName, pair.AccessToken)
	access.Expires = pair.AccessExpiresAt
	http.SetCookie(w, access)

	refresh := sessionCookie(common.RefreshTokenCookieName, pair.RefreshToken)
	refresh.Expires = pair.RefreshExpiresAt
	http.SetCookie(w, refresh)
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := sessionCookie(name, "")
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}
