package i18n

import (
	"net/http"
	"strings"
	"time"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "kitchen_lang"
)

// Resolve picks the language for a request. The order is the lang query
// parameter, the session preference, the cookie, then Accept-Language. The
// bool reports whether the query parameter selected it, so the caller can
// persist the choice.
func (b *Bundle) Resolve(r *http.Request, sessionLang string) (string, bool) {
	if r == nil {
		return b.base, false
	}

	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" && b.Supports(v) {
		return v, true
	}

	if sessionLang != "" && b.Supports(sessionLang) {
		return sessionLang, false
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil && b.Supports(cookie.Value) {
		return cookie.Value, false
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		return b.Match(accept), false
	}

	return b.base, false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, lang string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
