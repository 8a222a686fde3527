package taos

import "strings"

// deniedPrefixes lists the statement verbs the gateway refuses to forward.
// The check is a prefix match on the trimmed, uppercased statement and
// nothing more: a denied verb appearing later in the statement (inside a
// subquery or a string literal) passes. That weakness is intentional and
// relied upon by callers; do not extend this into a parser.
var deniedPrefixes = []string{
	"ALTER",
	"CREATE",
	"DELETE",
	"DROP",
	"INSERT",
	"UPDATE",
	"TRIM",
	"FLUSH",
	"BALANCE",
	"REDISTRIBUTE",
	"GRANT",
	"REVOKE",
	"RESET",
	"KILL",
	"COMPACT",
}

// ValidateStatement classifies a raw SQL statement as read-only or denied.
// It returns ErrStatementDenied when the statement starts with a write verb.
func ValidateStatement(stmt string) error {
	var upper = strings.ToUpper(strings.TrimSpace(stmt))

	for _, prefix := range deniedPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return ErrStatementDenied
		}
	}

	return nil
}
