// Package query compiles search queries into matchers, ranks filename
// matches by relevance, and maintains bounded search history.
package query

import (
	"regexp"
	"strings"

	"github.com/mcolletta/direx/internal/logger"
)

// PatternType selects how a query string is interpreted.
type PatternType int

const (
	// PatternLiteral matches the query as a plain substring.
	PatternLiteral PatternType = iota

	// PatternWildcard matches the whole filename with * and ? wildcards.
	PatternWildcard

	// PatternRegex uses the query verbatim as a regular expression.
	PatternRegex
)

// MatchSource identifies which field of an item a match was found in.
type MatchSource int

// SourceFilename is the only match source; content search is out of scope.
const SourceFilename MatchSource = iota

// Match is one occurrence of the pattern within a filename.
type Match struct {
	Source MatchSource
	Text   string
	Start  int
	End    int
}

// Matcher is a compiled query.
type Matcher struct {
	re *regexp.Regexp
}

// Compile turns a query into a Matcher.
//
// Literal queries are regex-escaped and matched as substrings. Wildcard
// queries translate * to .* and ? to ., anchored with ^...$ so they match
// the whole filename. Regex queries are used verbatim.
//
// Returns nil for blank queries and for syntactically invalid regular
// expressions: an invalid pattern means "no matches", never an error.
func Compile(q string, pattern PatternType, caseSensitive bool) *Matcher {
	if strings.TrimSpace(q) == "" {
		return nil
	}

	var expr string
	switch pattern {
	case PatternLiteral:
		expr = regexp.QuoteMeta(q)
	case PatternWildcard:
		escaped := regexp.QuoteMeta(q)
		escaped = strings.ReplaceAll(escaped, `\*`, ".*")
		escaped = strings.ReplaceAll(escaped, `\?`, ".")
		expr = "^" + escaped + "$"
	case PatternRegex:
		expr = q
	default:
		return nil
	}

	if !caseSensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		logger.Debug("Invalid search pattern %q: %v", q, err)
		return nil
	}

	return &Matcher{re: re}
}

// FindMatches returns every non-overlapping occurrence of the pattern in
// name, in left-to-right order.
func (m *Matcher) FindMatches(name string) []Match {
	locs := m.re.FindAllStringIndex(name, -1)
	if len(locs) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{
			Source: SourceFilename,
			Text:   name[loc[0]:loc[1]],
			Start:  loc[0],
			End:    loc[1],
		})
	}
	return matches
}
