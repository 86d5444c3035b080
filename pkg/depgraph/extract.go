package depgraph

import (
	"regexp"
)

// Reference is one raw object reference discovered in a definition body.
// Table is empty for unqualified references, which resolve to either a
// metric or a column of the defining object's home table.
type Reference struct {
	Table string
	Name  string
}

// Extractor scans a free-text definition body for references to other
// named objects. Implementations are a parsing concern kept behind this
// interface; graph construction does not depend on any expression syntax.
type Extractor interface {
	Extract(body string) ([]Reference, error)
}

// bracketRef matches 'Table'[Column], Table[Column], and bare [Name]
// reference forms in expression text.
var bracketRef = regexp.MustCompile(`(?:'([^'\n]+)'|([A-Za-z_][A-Za-z0-9_]*))?\[([^\[\]\n]+)\]`)

// RegexExtractor is the default reference extractor. It recognizes the
// bracketed identifier forms common to analytical expression languages.
type RegexExtractor struct{}

// NewRegexExtractor creates the default extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract returns every bracketed reference in body, in order of
// appearance. Duplicates are preserved; the graph dedupes on insertion.
func (e *RegexExtractor) Extract(body string) ([]Reference, error) {
	matches := bracketRef.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		table := m[1]
		if table == "" {
			table = m[2]
		}
		refs = append(refs, Reference{Table: table, Name: m[3]})
	}
	return refs, nil
}
