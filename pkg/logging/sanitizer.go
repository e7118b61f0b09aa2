package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength caps how much of a SQL query is logged.
	MaxQueryLogLength = 200
	// RedactedText replaces sensitive values in log output.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx in DSN key-value form
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Bearer tokens from provider HTTP errors
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)

	// api_key=xxx style values
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey)=[A-Za-z0-9-_]{8,}`)

	// user:pass@host in URL-style connection strings
	userInfoPattern = regexp.MustCompile(`://[^:/@\s]+:[^@\s]+@`)
)

// SanitizeDSN redacts credentials from a connection string so it can be
// logged. Handles both key-value DSNs (gosnowflake, go-mssqldb) and
// URL-style DSNs (pgx).
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	return userInfoPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
}

// SanitizeError redacts credential material from error messages before
// logging. Driver errors sometimes echo the DSN back, and provider SDK
// errors can include the Authorization header.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return userInfoPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
}

// TruncateQuery shortens a SQL query for log lines. Generated queries
// can embed large IN lists that would otherwise flood the log.
func TruncateQuery(query string) string {
	if len(query) <= MaxQueryLogLength {
		return query
	}
	return query[:MaxQueryLogLength] + "..."
}
