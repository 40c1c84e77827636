package pipeline

import (
	"time"

	"github.com/minios-linux/wrapkit/catalog"
	"github.com/minios-linux/wrapkit/checksum"
	"github.com/minios-linux/wrapkit/langmeta"
)

// LocaleStatus summarizes one locale's catalog against the default locale.
type LocaleStatus struct {
	Locale  string
	Meta    langmeta.Meta
	Default bool
	// Exists is false when the locale has no catalog on disk yet.
	Exists bool
	// Total is the number of keys in the default catalog.
	Total int
	// Translated counts default keys with a non-empty value here.
	Translated int
	// Missing counts default keys without a value here.
	Missing int
	// Stale counts translated keys whose source text changed since they
	// were translated.
	Stale int
	// Obsolete counts keys that no longer exist in the default catalog.
	Obsolete    int
	LastUpdated time.Time
}

// Percent returns the translated share of Total, 0-100.
func (s LocaleStatus) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Translated * 100 / s.Total
}

// Status reports the default locale first, then each target locale.
// Locales found on disk but absent from the configuration are included.
func (r *Runner) Status() ([]LocaleStatus, error) {
	def := r.cfg.DefaultLocale
	src, err := r.store.Load(def)
	if err != nil {
		return nil, err
	}
	source := map[string]string{}
	if src != nil {
		source = catalog.Flatten(src.Data)
	}

	defStatus := LocaleStatus{
		Locale:     def,
		Meta:       langmeta.Resolve(def),
		Default:    true,
		Exists:     src != nil,
		Total:      len(source),
		Translated: len(source),
	}
	if src != nil {
		defStatus.LastUpdated = src.LastUpdated
	}
	out := []LocaleStatus{defStatus}

	onDisk, err := r.store.Locales()
	if err != nil {
		return nil, err
	}
	locales := append([]string(nil), r.cfg.Locales...)
	known := map[string]bool{def: true}
	for _, l := range locales {
		known[l] = true
	}
	for _, l := range onDisk {
		if !known[l] {
			known[l] = true
			locales = append(locales, l)
		}
	}

	for _, loc := range locales {
		st := LocaleStatus{Locale: loc, Meta: langmeta.Resolve(loc), Total: len(source)}
		lf, err := r.store.Load(loc)
		if err != nil {
			return nil, err
		}
		if lf == nil {
			st.Missing = len(source)
			out = append(out, st)
			continue
		}

		st.Exists = true
		st.LastUpdated = lf.LastUpdated
		target := catalog.Flatten(lf.Data)
		for key, text := range source {
			v, ok := target[key]
			if !ok || v == "" {
				st.Missing++
				continue
			}
			st.Translated++
			if h, ok := lf.SourceHashes[key]; ok && h != checksum.Hash(text) {
				st.Stale++
			}
		}
		for key := range target {
			if _, ok := source[key]; !ok {
				st.Obsolete++
			}
		}
		out = append(out, st)
	}
	return out, nil
}
