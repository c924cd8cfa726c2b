package properties

import (
	"iter"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rendis/nodeforge/internal/reflection"
)

// Match is a reflected field bound to the type that declares it.
type Match struct {
	Owner    string
	Field    reflection.Field
	Writable bool
}

// TypeSource yields every loaded type. *reflection.Registry satisfies it.
type TypeSource interface {
	Types() iter.Seq[*reflection.Type]
}

// Locator searches every loaded type for a field matching a loosely spelled name.
type Locator struct {
	types  TypeSource
	logger *slog.Logger
}

// NewLocator creates a Locator over types.
func NewLocator(types TypeSource, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{types: types, logger: logger}
}

// Find returns the field matching name. Setter requests (wantGetter false) only
// match writable fields. When several types declare a match, the one with the
// lowest owner name, then field name, wins.
func (l *Locator) Find(name string, wantGetter bool) (Match, bool) {
	matches := l.FindAll(name, wantGetter)
	if len(matches) == 0 {
		return Match{}, false
	}
	if len(matches) > 1 {
		owners := make([]string, len(matches))
		for i, m := range matches {
			owners[i] = m.Owner + "." + m.Field.Name
		}
		l.logger.Warn("ambiguous property name resolved",
			slog.String("name", name),
			slog.String("chosen", owners[0]),
			slog.Any("candidates", owners),
		)
	}
	return matches[0], true
}

// FindAll returns every match in deterministic order.
func (l *Locator) FindAll(name string, wantGetter bool) []Match {
	candidates := Candidates(name)
	if len(candidates) == 0 {
		return nil
	}

	var out []Match
	for t := range l.types.Types() {
		for _, f := range t.Fields {
			if !f.Visible() {
				continue
			}
			if !wantGetter && !f.Writable() {
				continue
			}
			if matchesAny(Variants(f), candidates) {
				out = append(out, Match{Owner: t.Name, Field: f, Writable: f.Writable()})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Field.Name < out[j].Field.Name
	})
	return out
}

// Candidates builds the request-side spellings: the raw name and the boolean
// "b" + PascalCase form.
func Candidates(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	out := []string{name}
	compact := strings.ReplaceAll(name, " ", "")
	if compact != name {
		out = append(out, compact)
	}
	out = append(out, "b"+pascal(name))
	return out
}

// Variants builds the field-side spellings: raw, bool prefix stripped and the
// display name with spaces removed.
func Variants(f reflection.Field) []string {
	display := f.DisplayName
	if display == "" {
		display = reflection.Humanize(f.Name)
	}
	return []string{
		f.Name,
		reflection.StripBoolPrefix(f.Name),
		strings.ReplaceAll(display, " ", ""),
	}
}

func matchesAny(variants, candidates []string) bool {
	for _, v := range variants {
		for _, c := range candidates {
			if strings.EqualFold(v, c) {
				return true
			}
		}
	}
	return false
}

func pascal(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(word[size:])
	}
	return b.String()
}
