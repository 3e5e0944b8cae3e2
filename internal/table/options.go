package table

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultNoiseKeywords are lab-report column labels (date, test name, result,
// unit, reference range) that layout extractors repeat mid-document.
var DefaultNoiseKeywords = []string{"tarih", "tahlil", "sonuç", "birimi", "referans"}

// Options tunes Reconstruct.
type Options struct {
	NoiseKeywords []string
}

// Option configures Reconstruct.
type Option func(*Options)

// WithNoiseKeywords replaces the stop keyword set. An empty set disables
// keyword filtering.
func WithNoiseKeywords(keywords ...string) Option {
	return func(o *Options) {
		o.NoiseKeywords = keywords
	}
}

var turkishLower = cases.Lower(language.Turkish)

func newOptions(opts []Option) Options {
	o := Options{NoiseKeywords: DefaultNoiseKeywords}
	for _, opt := range opts {
		opt(&o)
	}
	keywords := make([]string, 0, len(o.NoiseKeywords))
	for _, k := range o.NoiseKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	o.NoiseKeywords = keywords
	return o
}

// isNoise matches keywords against both the plain and the Turkish lowercase
// form, so "TARİH" and "TAHLIL" are caught alike.
func (o Options) isNoise(line string) bool {
	if len(o.NoiseKeywords) == 0 {
		return false
	}
	plain := strings.ToLower(line)
	turkish := turkishLower.String(line)
	for _, k := range o.NoiseKeywords {
		if strings.Contains(plain, k) || strings.Contains(turkish, k) {
			return true
		}
	}
	return false
}
