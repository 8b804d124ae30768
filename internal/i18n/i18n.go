// Package i18n holds the per-language content types shared by trips, posts
// and settings. Mongolian is the base language every lookup falls back to.
package i18n

import "strings"

type Lang string

const (
	MN Lang = "mn"
	EN Lang = "en"
	KO Lang = "ko"
)

// Base is the language every localized field must provide.
const Base = MN

var order = []Lang{MN, EN, KO}

var currencies = map[Lang]string{
	MN: "MNT",
	EN: "USD",
	KO: "KRW",
}

func (l Lang) Valid() bool {
	switch l {
	case MN, EN, KO:
		return true
	}
	return false
}

// ParseLang returns the language named by s, or fallback when s is not supported.
func ParseLang(s string, fallback Lang) Lang {
	l := Lang(strings.ToLower(strings.TrimSpace(s)))
	if l.Valid() {
		return l
	}
	if fallback.Valid() {
		return fallback
	}
	return Base
}

// Currency returns the currency prices are authored in for l.
func Currency(l Lang) string {
	if c, ok := currencies[l]; ok {
		return c
	}
	return currencies[Base]
}

type Text map[Lang]string

// Resolve returns the entry for lang, then the base entry, then the first
// non-empty entry. It only returns "" when every entry is blank.
func (t Text) Resolve(lang Lang) string {
	if s := strings.TrimSpace(t[lang]); s != "" {
		return t[lang]
	}
	if s := strings.TrimSpace(t[Base]); s != "" {
		return t[Base]
	}
	for _, l := range order {
		if strings.TrimSpace(t[l]) != "" {
			return t[l]
		}
	}
	return ""
}

func (t Text) HasBase() bool {
	return strings.TrimSpace(t[Base]) != ""
}

// Clone copies t so snapshots do not alias the source map.
func (t Text) Clone() Text {
	out := make(Text, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

type Price map[Lang]float64

// Resolve picks the amount authored for lang, falling back to the base
// language when that entry is missing or not positive.
func (p Price) Resolve(lang Lang) (float64, string) {
	if amount := p[lang]; amount > 0 {
		return amount, Currency(lang)
	}
	return p[Base], Currency(Base)
}
