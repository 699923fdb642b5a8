package match

import (
	"strings"
)

// DefaultProtected lists name prefixes that keep a preceding " x " intact,
// e.g. "X Ambassadors".
var DefaultProtected = []string{"ambassador"}

// collaborator markers dropped as whole tokens
var markers = map[string]bool{
	"feat.":     true,
	"feat":      true,
	"ft.":       true,
	"featuring": true,
	"with":      true,
}

// connectors join several artists; brackets are split the same way
var connectors = strings.NewReplacer(
	"&", " ",
	",", " ",
	"×", " ",
	"+", " ",
	";", " ",
	"/", " ",
	"·", " ",
	"(", " ",
	")", " ",
	"[", " ",
	"]", " ",
)

// Normalizer collapses collaborator annotations and punctuation variants
// so that titles and artists referring to the same work compare equal.
type Normalizer struct {
	Protected []string
}

var defaultNormalizer = &Normalizer{Protected: DefaultProtected}

// NewNormalizer returns a normalizer protecting the given name prefixes.
// A nil list selects DefaultProtected.
func NewNormalizer(protected []string) *Normalizer {
	if protected == nil {
		protected = DefaultProtected
	}
	return &Normalizer{Protected: protected}
}

func (n *Normalizer) orDefault() *Normalizer {
	if n == nil {
		return defaultNormalizer
	}
	return n
}

// Normalize applies the default normalizer.
func Normalize(s string) string {
	return defaultNormalizer.Normalize(s)
}

// Normalize returns the comparison form of s. It is total and idempotent.
func (n *Normalizer) Normalize(s string) string {
	return strings.Join(n.tokens(s), " ")
}

func (n *Normalizer) tokens(s string) []string {
	fields := strings.Fields(connectors.Replace(strings.ToLower(s)))

	kept := fields[:0]
	for _, f := range fields {
		if !markers[f] {
			kept = append(kept, f)
		}
	}

	out := make([]string, 0, len(kept))
	for i, f := range kept {
		if f == "x" && i > 0 && i < len(kept)-1 && !n.protected(kept[i+1]) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (n *Normalizer) protected(next string) bool {
	for _, p := range n.Protected {
		if p != "" && strings.HasPrefix(next, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// splitArtists breaks an artist credit into its collaborators, using the
// same markers and connectors as Normalize.
func (n *Normalizer) splitArtists(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))

	// a marker or an unprotected middle "x" separates two names
	var names []string
	var cur []string
	flush := func() {
		name := strings.Join(strings.Fields(connectors.Replace(strings.Join(cur, " "))), " ")
		if name != "" {
			names = append(names, name)
		}
		cur = cur[:0]
	}
	for i, f := range fields {
		if markers[f] || (f == "x" && i > 0 && i < len(fields)-1 && !n.protected(fields[i+1])) {
			flush()
			continue
		}
		for _, part := range splitConnectors(f) {
			if part == "" {
				flush()
				continue
			}
			cur = append(cur, part)
		}
	}
	flush()

	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// splitConnectors splits a token on artist connectors, marking each split
// point with an empty string.
func splitConnectors(tok string) []string {
	var parts []string
	start := 0
	for i, r := range tok {
		if strings.ContainsRune("&,×+;/·", r) {
			if i > start {
				parts = append(parts, tok[start:i])
			}
			parts = append(parts, "")
			start = i + len(string(r))
		}
	}
	if start < len(tok) {
		parts = append(parts, tok[start:])
	}
	return parts
}
