// Package sql screens generated SQL before it reaches a datasource.
package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

var (
	// ErrEmptyQuery indicates there is nothing to run.
	ErrEmptyQuery = errors.New("empty SQL query")
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// forbiddenKeywords may not appear anywhere outside literals and quoted
// identifiers. REPLACE is absent because it is also a string function.
var forbiddenKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {}, "UPSERT": {},
	"DROP": {}, "CREATE": {}, "ALTER": {}, "TRUNCATE": {},
	"GRANT": {}, "REVOKE": {}, "ATTACH": {}, "DETACH": {}, "PRAGMA": {},
	"VACUUM": {}, "REINDEX": {}, "EXEC": {}, "EXECUTE": {}, "CALL": {},
	"COPY": {}, "INTO": {},
}

// ValidateAndNormalize trims the query, strips one trailing semicolon and
// rejects anything that still contains a statement separator.
func ValidateAndNormalize(query string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(query))
	if normalized == "" {
		return "", ErrEmptyQuery
	}

	tokens, err := lex(normalized)
	if err != nil {
		return "", err
	}
	for _, t := range tokens {
		if t.kind == tokenSemicolon {
			return "", ErrMultipleStatements
		}
	}
	return normalized, nil
}

// EnsureReadOnly accepts only SELECT or WITH queries that contain no
// data-modifying or schema-changing keyword.
func EnsureReadOnly(query string) error {
	tokens, err := lex(query)
	if err != nil {
		return err
	}

	var first string
	for _, t := range tokens {
		if t.kind == tokenWord {
			first = strings.ToUpper(t.text)
			break
		}
	}
	if first != "SELECT" && first != "WITH" {
		return fmt.Errorf("%w: statement starts with %q", apperrors.ErrNotReadOnly, first)
	}

	for _, t := range tokens {
		if t.kind != tokenWord {
			continue
		}
		kw := strings.ToUpper(t.text)
		if _, bad := forbiddenKeywords[kw]; bad {
			return fmt.Errorf("%w: %s is not allowed", apperrors.ErrNotReadOnly, kw)
		}
	}
	return nil
}

// Prepare runs every check and returns the normalized query.
func Prepare(query string) (string, error) {
	normalized, err := ValidateAndNormalize(query)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnsafeQuery, err)
	}
	if err := EnsureReadOnly(normalized); err != nil {
		return "", err
	}
	if err := CheckLiterals(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(query string) string {
	query = strings.TrimRight(query, " \t\n\r")
	if strings.HasSuffix(query, ";") {
		query = strings.TrimSuffix(query, ";")
		query = strings.TrimRight(query, " \t\n\r")
	}
	return query
}
