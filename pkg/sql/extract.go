package sql

import "regexp"

// fencedSQLPattern matches a markdown code fence tagged as SQL.
// Single-match scan: when an answer contains more than one fenced block,
// only the first is used. This is a documented simplification, not a
// guarantee of best-block selection.
var fencedSQLPattern = regexp.MustCompile("(?s)```sql\\s*\\n(.*?)\\n```")

// ExtractSQL returns the contents of the first ```sql fenced block in the
// answer text. The second return is false when the answer is prose-only.
func ExtractSQL(text string) (string, bool) {
	m := fencedSQLPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
