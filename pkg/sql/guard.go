package sql

import (
	"regexp"
)

// RefusalMessage is the fixed response returned when a denylisted statement
// is detected. The statement is never sent to the warehouse.
const RefusalMessage = "Nice try, but dangerous changes to our data is not allowed here! Try asking a question about our data instead."

// denyPattern matches write-shaped SQL keywords as case-insensitive whole
// words. This is a textual guard, not a parser: obfuscated SQL (comments,
// unusual quoting) can bypass it. It is a best-effort safeguard, not a
// security boundary; deployments that need a guarantee should run the
// assistant under a read-only warehouse role.
var denyPattern = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE)\b`)

// CheckDenylist reports the first denylisted keyword found in the
// statement, if any. Keywords appearing only as substrings of longer
// identifiers (e.g. a column named UPDATED_AT) do not match.
func CheckDenylist(sqlQuery string) (string, bool) {
	m := denyPattern.FindString(sqlQuery)
	if m == "" {
		return "", false
	}
	return m, true
}
