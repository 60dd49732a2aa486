// Package i18n resolves the request language for the bilingual dashboard.
package i18n

import (
	"golang.org/x/text/language"
)

// Locale is one of the two languages the service answers in.
type Locale string

const (
	English Locale = "en"
	Arabic  Locale = "ar"
)

var matcher = language.NewMatcher([]language.Tag{
	language.English, // default when nothing matches
	language.Arabic,
})

// Match picks the best supported locale for an Accept-Language header value.
func Match(acceptLanguage string) Locale {
	if acceptLanguage == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return English
	}
	if index == 1 {
		return Arabic
	}
	return English
}

// IsRTL reports whether text in the locale is written right to left.
func (l Locale) IsRTL() bool {
	return l == Arabic
}

// Pick returns the text for the locale, falling back to English when the
// Arabic variant is empty.
func Pick(l Locale, en, ar string) string {
	if l == Arabic && ar != "" {
		return ar
	}
	return en
}
