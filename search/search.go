// Package search matches user input against Portuguese place names.
package search

import (
	"strings"
	"unicode"

	"ecoleta-cli/model"
	"github.com/charmbracelet/bubbles/list"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics, so "São Paulo" folds to "sao paulo".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Filter is a list.FilterFunc that ignores case and accents.
func Filter(term string, targets []string) []list.Rank {
	folded := make([]string, len(targets))
	for i, target := range targets {
		folded[i] = Fold(target)
	}
	return list.DefaultFilter(Fold(term), folded)
}

type optionSource []model.Option

func (o optionSource) String(i int) string { return Fold(o[i].Label) }
func (o optionSource) Len() int            { return len(o) }

// Lookup resolves term to an option. An exact match on value or label wins,
// otherwise the best fuzzy match on the label is returned.
func Lookup(term string, options []model.Option) (model.Option, bool) {
	needle := Fold(term)
	if needle == "" {
		return model.Option{}, false
	}
	for _, option := range options {
		if option.Value == "" {
			continue
		}
		if Fold(option.Value) == needle || Fold(option.Label) == needle {
			return option, true
		}
	}

	matches := Match(term, options)
	if len(matches) == 0 {
		return model.Option{}, false
	}
	return matches[0], true
}

// Match returns the options whose labels fuzzily contain term, best first.
func Match(term string, options []model.Option) []model.Option {
	needle := Fold(term)
	if needle == "" {
		return nil
	}
	found := fuzzy.FindFrom(needle, optionSource(options))
	result := make([]model.Option, 0, len(found))
	for _, match := range found {
		if options[match.Index].Value == "" {
			continue
		}
		result = append(result, options[match.Index])
	}
	return result
}
