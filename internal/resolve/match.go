package resolve

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Match is the best fuzzy candidate for a query title.
type Match struct {
	Title string
	// Score is Jaro-Winkler similarity scaled to 0-100.
	Score int
}

// BestMatch finds the candidate title most similar to query. Jaro-Winkler
// favors shared prefixes, which suits media titles that diverge in suffixes
// ("Part 2", alternate romanizations, trailing years).
func BestMatch(query string, candidates []string) Match {
	normalizedQuery := cleanTitle(query)

	var best Match
	for _, candidate := range candidates {
		score := int(edlib.JaroWinklerSimilarity(normalizedQuery, cleanTitle(candidate)) * 100)
		if score > best.Score {
			best.Title = candidate
			best.Score = score
		}
	}
	return best
}

// cleanTitle normalizes a title for matching: lowercase, accents stripped,
// punctuation removed, leading articles dropped, whitespace collapsed.
func cleanTitle(title string) string {
	s := strings.ToLower(title)
	s = removeAccents(s)

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, ".", " ")

	// Split on colon to handle subtitles (e.g., "Léon: The Professional")
	parts := strings.Split(s, ":")
	for i, part := range parts {
		parts[i] = stripLeadingArticle(strings.TrimSpace(part))
	}
	s = strings.Join(parts, " ")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	fields := strings.Fields(b.String())
	return strings.Join(fields, " ")
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

func stripLeadingArticle(s string) string {
	for _, art := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, art) {
			return strings.TrimPrefix(s, art)
		}
	}
	return s
}
