// Package i18n translates wrapkit's own console messages.
//
// Catalogs are gettext .po files embedded in the binary under
// locales/<lang>/LC_MESSAGES/wrapkit.po. Init picks the language from the
// environment the way GNU gettext does; T and N fall back to the msgid.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Directory structure: locales/{lang}/LC_MESSAGES/wrapkit.po
//
//go:embed all:locales
var locales embed.FS

const domain = "wrapkit"

var (
	po      *gotext.Locale
	current = "en"
)

// Init initializes the i18n system. If lang is empty, it auto-detects
// from the environment variables LANGUAGE, LC_ALL, LC_MESSAGES, LANG
// (in that order, matching GNU gettext behavior).
// It returns the language in use.
func Init(lang string) string {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	current = lang
	return lang
}

// Lang returns the language selected by the last Init.
func Lang() string { return current }

// Available lists the languages with an embedded catalog.
func Available() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(locales, "locales/"+e.Name()+"/LC_MESSAGES/"+domain+".po"); err == nil {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs
}

// T translates a string. If no translation is available, returns the
// original string unchanged (standard gettext passthrough behavior).
// The lookup goes through the domain directly so msgid is never treated as
// a format string.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	po.RLock()
	tr := po.Domains[po.GetDomain()]
	po.RUnlock()
	if tr == nil {
		return msgid
	}
	return tr.Get(msgid)
}

// N translates a string with plural forms. The singular form is used
// when n == 1, the plural form otherwise (exact rules depend on the
// target language's plural formula).
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage reads environment variables to determine the user's
// preferred language, following GNU gettext conventions.
func detectLanguage() string {
	// GNU gettext priority: LANGUAGE > LC_ALL > LC_MESSAGES > LANG
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			// LANGUAGE can be a colon-separated list; take the first
			if env == "LANGUAGE" {
				parts := strings.SplitN(val, ":", 2)
				val = parts[0]
			}
			// Strip encoding suffix (e.g. "ru_RU.UTF-8" -> "ru_RU")
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			// "C" and "POSIX" mean no translation
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return "en"
}
