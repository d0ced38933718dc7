// Package i18n loads the UI message catalogs and hands out a Localizer per
// request. There is no process-wide language state: callers resolve a
// language for each request and pass the resulting Localizer to the views.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Direction is the text direction of a language
type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Locale    string            `yaml:"locale"`
	Name      string            `yaml:"name"`
	Direction Direction         `yaml:"direction"`
	Messages  map[string]string `yaml:"messages"`
}

type locale struct {
	tag       language.Tag
	name      string
	direction Direction
	messages  map[string]string
}

// Bundle holds every loaded locale and a matcher over the enabled ones
type Bundle struct {
	base    string
	locales map[string]*locale
	enabled []string
	matcher language.Matcher
	builder *catalog.Builder
}

// LoadEmbedded loads the catalogs compiled into the binary, enabling the
// given languages with def as the fallback.
func LoadEmbedded(def string, enabled []string) (*Bundle, error) {
	return LoadFS(embeddedLocales, def, enabled)
}

// LoadFS loads locales/*.yaml from fsys
func LoadFS(fsys fs.FS, def string, enabled []string) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{
		base:    def,
		locales: make(map[string]*locale, len(paths)),
	}

	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, err
		}
	}

	base, ok := b.locales[def]
	if !ok {
		return nil, fmt.Errorf("default locale %q is not defined in catalogs", def)
	}

	if len(enabled) == 0 {
		enabled = []string{def}
	}
	tags := []language.Tag{base.tag}
	b.enabled = []string{def}
	for _, code := range enabled {
		if code == def {
			continue
		}
		loc, ok := b.locales[code]
		if !ok {
			return nil, fmt.Errorf("enabled locale %q is not defined in catalogs", code)
		}
		tags = append(tags, loc.tag)
		b.enabled = append(b.enabled, code)
	}
	b.matcher = language.NewMatcher(tags)

	if err := b.register(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) add(p string, file localeFile) error {
	code := strings.TrimSpace(file.Locale)
	fromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if code == "" {
		return fmt.Errorf("catalog %s: locale is required", p)
	}
	if code != fromPath {
		return fmt.Errorf("catalog %s: locale %q must match file name %q", p, code, fromPath)
	}
	tag, err := language.Parse(code)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale: %w", p, err)
	}
	if _, exists := b.locales[code]; exists {
		return fmt.Errorf("catalog %s: locale %q already defined", p, code)
	}

	dir := file.Direction
	if dir == "" {
		dir = LTR
	}
	if dir != LTR && dir != RTL {
		return fmt.Errorf("catalog %s: direction must be ltr or rtl", p)
	}

	messages := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		messages[key] = value
	}

	b.locales[code] = &locale{tag: tag, name: file.Name, direction: dir, messages: messages}
	return nil
}

// register builds a private x/text catalog. Keys missing from a locale are
// filled from the default locale.
func (b *Bundle) register() error {
	b.builder = catalog.NewBuilder(catalog.Fallback(b.locales[b.base].tag))
	base := b.locales[b.base].messages

	for _, code := range b.enabled {
		loc := b.locales[code]
		for key, value := range base {
			if v, ok := loc.messages[key]; ok {
				value = v
			}
			if err := b.builder.SetString(loc.tag, key, value); err != nil {
				return fmt.Errorf("register %s/%s: %w", code, key, err)
			}
		}
		for key, value := range loc.messages {
			if _, ok := base[key]; ok {
				continue
			}
			if err := b.builder.SetString(loc.tag, key, value); err != nil {
				return fmt.Errorf("register %s/%s: %w", code, key, err)
			}
		}
	}
	return nil
}

// Default returns the fallback language code
func (b *Bundle) Default() string {
	return b.base
}

// Languages returns the enabled language codes, default first
func (b *Bundle) Languages() []string {
	out := make([]string, len(b.enabled))
	copy(out, b.enabled)
	return out
}

// Supports reports whether code is an enabled language
func (b *Bundle) Supports(code string) bool {
	for _, c := range b.enabled {
		if c == code {
			return true
		}
	}
	return false
}

// Match returns the enabled language that best fits the candidates, which
// may be language tags or Accept-Language header values. The default
// language is returned when nothing matches.
func (b *Bundle) Match(candidates ...string) string {
	var tags []language.Tag
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if parsed, _, err := language.ParseAcceptLanguage(c); err == nil {
			tags = append(tags, parsed...)
		}
	}
	if len(tags) == 0 {
		return b.base
	}

	_, index, confidence := b.matcher.Match(tags...)
	if confidence == language.No {
		return b.base
	}
	return b.enabled[index]
}

// Localizer returns the localizer for code, falling back to the default
func (b *Bundle) Localizer(code string) *Localizer {
	if !b.Supports(code) {
		code = b.base
	}
	loc := b.locales[code]
	return &Localizer{
		lang:    code,
		loc:     loc,
		bundle:  b,
		printer: message.NewPrinter(loc.tag, message.Catalog(b.builder)),
	}
}

// Option describes a language choice for the switcher
type Option struct {
	Code   string
	Label  string
	Active bool
}

// Options returns the enabled languages, marking active
func (b *Bundle) Options(active string) []Option {
	out := make([]Option, 0, len(b.enabled))
	for _, code := range b.enabled {
		label := b.locales[code].name
		if label == "" {
			label = code
		}
		out = append(out, Option{Code: code, Label: label, Active: code == active})
	}
	return out
}

// Localizer translates messages for one language
type Localizer struct {
	lang    string
	loc     *locale
	bundle  *Bundle
	printer *message.Printer
}

// Lang returns the language code
func (l *Localizer) Lang() string {
	return l.lang
}

// Dir returns the text direction
func (l *Localizer) Dir() Direction {
	return l.loc.direction
}

// IsRTL reports whether the language is written right to left
func (l *Localizer) IsRTL() bool {
	return l.loc.direction == RTL
}

// Has reports whether key has a translation in this language or the default
func (l *Localizer) Has(key string) bool {
	if _, ok := l.loc.messages[key]; ok {
		return true
	}
	_, ok := l.bundle.locales[l.bundle.base].messages[key]
	return ok
}

// T translates key, formatting args into the message. Unknown keys render
// as the key itself.
func (l *Localizer) T(key string, args ...interface{}) string {
	return l.printer.Sprintf(key, args...)
}

// TOr translates key, or returns fallback when the key is unknown
func (l *Localizer) TOr(key, fallback string) string {
	if !l.Has(key) {
		return fallback
	}
	return l.T(key)
}

// Number formats n using the language's digits and separators
func (l *Localizer) Number(n interface{}) string {
	return l.printer.Sprint(n)
}

// Options returns the language switcher options with this language active
func (l *Localizer) Options() []Option {
	return l.bundle.Options(l.lang)
}
