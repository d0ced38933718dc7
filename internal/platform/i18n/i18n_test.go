package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := LoadEmbedded("en", []string{"en", "ar"})
	require.NoError(t, err)
	return b
}

func TestLoadEmbedded(t *testing.T) {
	b := newBundle(t)

	assert.Equal(t, "en", b.Default())
	assert.Equal(t, []string{"en", "ar"}, b.Languages())
	assert.True(t, b.Supports("ar"))
	assert.False(t, b.Supports("fr"))
}

func TestEmbeddedCatalogsHaveSameKeys(t *testing.T) {
	b := newBundle(t)

	en := b.locales["en"].messages
	ar := b.locales["ar"].messages
	for key := range en {
		_, ok := ar[key]
		assert.True(t, ok, "ar is missing %q", key)
	}
	for key := range ar {
		_, ok := en[key]
		assert.True(t, ok, "en is missing %q", key)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name:  "no catalogs",
			files: fstest.MapFS{},
			want:  "no catalog files",
		},
		{
			name: "locale does not match file",
			files: fstest.MapFS{
				"locales/en.yaml": {Data: []byte("locale: de\nmessages: {a: b}\n")},
			},
			want: "must match file name",
		},
		{
			name: "bad direction",
			files: fstest.MapFS{
				"locales/en.yaml": {Data: []byte("locale: en\ndirection: up\nmessages: {a: b}\n")},
			},
			want: "direction",
		},
		{
			name: "missing default",
			files: fstest.MapFS{
				"locales/ar.yaml": {Data: []byte("locale: ar\nmessages: {a: b}\n")},
			},
			want: "default locale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(tt.files, "en", []string{"en"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLocalizer_Translate(t *testing.T) {
	b := newBundle(t)

	en := b.Localizer("en")
	assert.Equal(t, "No recipes yet", en.T("recipes.empty"))
	assert.Equal(t, "Page 3", en.T("pagination.page", 3))
	assert.Equal(t, LTR, en.Dir())
	assert.False(t, en.IsRTL())

	ar := b.Localizer("ar")
	assert.Equal(t, "لا توجد وصفات بعد", ar.T("recipes.empty"))
	assert.Equal(t, RTL, ar.Dir())
	assert.True(t, ar.IsRTL())

	assert.Equal(t, "en", b.Localizer("fr").Lang(), "unsupported language falls back")
}

func TestLocalizer_FallbackToDefault(t *testing.T) {
	files := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("locale: en\nmessages:\n  greet: Hello\n  bye: Goodbye\n")},
		"locales/ar.yaml": {Data: []byte("locale: ar\ndirection: rtl\nmessages:\n  greet: مرحبا\n")},
	}
	b, err := LoadFS(files, "en", []string{"en", "ar"})
	require.NoError(t, err)

	ar := b.Localizer("ar")
	assert.Equal(t, "مرحبا", ar.T("greet"))
	assert.Equal(t, "Goodbye", ar.T("bye"))
	assert.Equal(t, "missing.key", ar.T("missing.key"))
	assert.Equal(t, "Tuesday", ar.TOr("day.tuesday", "Tuesday"))
}

func TestBundle_Match(t *testing.T) {
	b := newBundle(t)

	assert.Equal(t, "ar", b.Match("ar-EG,ar;q=0.9,en;q=0.5"))
	assert.Equal(t, "en", b.Match("en-GB"))
	assert.Equal(t, "en", b.Match(""))
	assert.Equal(t, "en", b.Match("not a language"))
}

func TestBundle_Resolve(t *testing.T) {
	b := newBundle(t)

	tests := []struct {
		name        string
		url         string
		session     string
		cookie      string
		accept      string
		want        string
		wantPersist bool
	}{
		{name: "query wins", url: "/?lang=ar", session: "en", want: "ar", wantPersist: true},
		{name: "unsupported query ignored", url: "/?lang=xx", session: "ar", want: "ar"},
		{name: "session before cookie", url: "/", session: "ar", cookie: "en", want: "ar"},
		{name: "cookie before header", url: "/", cookie: "ar", accept: "en", want: "ar"},
		{name: "accept language", url: "/", accept: "ar-SA", want: "ar"},
		{name: "default", url: "/", want: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				r.Header.Set("Accept-Language", tt.accept)
			}

			got, persist := b.Resolve(r, tt.session)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPersist, persist)
		})
	}
}

func TestSetLanguageCookie(t *testing.T) {
	rec := httptest.NewRecorder()

	SetLanguageCookie(rec, "ar", true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, LangCookieName, cookies[0].Name)
	assert.Equal(t, "ar", cookies[0].Value)
	assert.True(t, cookies[0].Secure)
}

func TestOptions(t *testing.T) {
	b := newBundle(t)

	opts := b.Localizer("ar").Options()

	require.Len(t, opts, 2)
	assert.Equal(t, Option{Code: "en", Label: "English", Active: false}, opts[0])
	assert.Equal(t, Option{Code: "ar", Label: "العربية", Active: true}, opts[1])
}
