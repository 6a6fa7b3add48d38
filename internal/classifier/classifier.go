// Package classifier implements a positive SQL whitelist: a small
// hand-written literal-aware scanner followed by a sequence of anchored
// pattern matchers, rather than a general SQL grammar. Anything not an
// exact match for one of the whitelisted shapes is Rejected; there is
// no pass-through path.
package classifier

import (
	"regexp"
	"strings"
)

const serverVersion = "8.0.36-mini-mysql-redis"

// ServerVersion is the value returned for SELECT @@version.
func ServerVersion() string { return serverVersion }

var forbiddenWords = []string{
	"AND", "OR", "LIKE", "IN", "JOIN", "UNION",
	"INSERT", "UPDATE", "DELETE", "REPLACE",
	"CREATE", "DROP", "ALTER", "TRUNCATE", "GRANT", "REVOKE",
}

var forbiddenWordRe = regexp.MustCompile(`\b(` + strings.Join(forbiddenWords, "|") + `)\b`)

var (
	forbiddenOrderBy  = regexp.MustCompile(`\bORDER\s+BY\b`)
	forbiddenGroupBy  = regexp.MustCompile(`\bGROUP\s+BY\b`)
	forbiddenLimit    = regexp.MustCompile(`\bLIMIT\b`)
	forbiddenOffset   = regexp.MustCompile(`\bOFFSET\b`)
	forbiddenCompare  = regexp.MustCompile(`<=|>=|<>|!=|<|>`)
	literalRe         = regexp.MustCompile(`'(?:[^'\\]|\\.|'')*'`)
	reVersion         = regexp.MustCompile(`(?i)^SELECT\s+@@version$`)
	reShowTables      = regexp.MustCompile(`(?i)^SHOW\s+TABLES$`)
	reDescribe        = regexp.MustCompile(`(?i)^(?:DESC|DESCRIBE)\s+users$`)
	rePkLookup        = regexp.MustCompile(`(?i)^SELECT\s+\*\s+FROM\s+(\w+)\s+WHERE\s+(\w+)\s*=\s*('(?:[^'\\]|\\.|'')*')$`)
	reFullScan        = regexp.MustCompile(`(?i)^SELECT\s+\*\s+FROM\s+(\w+)$`)
	reTokenVerify     = regexp.MustCompile(`(?i)^SELECT\s+qr_verify\(\s*('(?:[^'\\]|\\.|'')*')\s*\)$`)
	reNoopSet         = regexp.MustCompile(`(?i)^SET\b`)
	reNoopUse         = regexp.MustCompile(`(?i)^USE\b`)
	reNoopShowVars    = regexp.MustCompile(`(?i)^SHOW\s+VARIABLES\b`)
	reNoopSelectOne   = regexp.MustCompile(`(?i)^SELECT\s+1$`)
)

// Classify normalises raw SQL text and matches it against the whitelist,
// returning a Rejected result for anything not an exact match.
func Classify(raw string, allowScan bool) Result {
	normalized := normalize(raw)
	if normalized == "" {
		return Result{Kind: Rejected}
	}

	if reNoopSet.MatchString(normalized) || reNoopUse.MatchString(normalized) ||
		reNoopShowVars.MatchString(normalized) || reNoopSelectOne.MatchString(normalized) {
		return Result{Kind: Noop}
	}

	masked := maskLiterals(normalized)
	upperMasked := strings.ToUpper(masked)

	if containsForbidden(upperMasked) {
		return Result{Kind: Rejected}
	}

	if reVersion.MatchString(normalized) {
		return Result{Kind: Version}
	}

	if reShowTables.MatchString(normalized) {
		return Result{Kind: ShowTables}
	}

	if reDescribe.MatchString(normalized) {
		return Result{Kind: DescribeUsers}
	}

	if m := rePkLookup.FindStringSubmatch(normalized); m != nil {
		table, column, quoted := m[1], m[2], m[3]
		if !strings.EqualFold(table, "users") || !strings.EqualFold(column, "id") {
			return Result{Kind: Rejected}
		}
		return Result{
			Kind:   PkLookup,
			Table:  "users",
			Column: "id",
			Value:  unquoteLiteral(quoted),
		}
	}

	if m := reFullScan.FindStringSubmatch(normalized); m != nil {
		table := m[1]
		if !strings.EqualFold(table, "users") {
			return Result{Kind: Rejected}
		}
		if !allowScan {
			return Result{Kind: Rejected}
		}
		return Result{Kind: FullScan, Table: "users"}
	}

	if m := reTokenVerify.FindStringSubmatch(normalized); m != nil {
		return Result{Kind: TokenVerify, Token: unquoteLiteral(m[1])}
	}

	return Result{Kind: Rejected}
}

func containsForbidden(upperMasked string) bool {
	return forbiddenWordRe.MatchString(upperMasked) ||
		forbiddenOrderBy.MatchString(upperMasked) ||
		forbiddenGroupBy.MatchString(upperMasked) ||
		forbiddenLimit.MatchString(upperMasked) ||
		forbiddenOffset.MatchString(upperMasked) ||
		forbiddenCompare.MatchString(upperMasked) ||
		strings.Count(upperMasked, "SELECT") > 1
}

// normalize trims surrounding whitespace and any run of trailing
// semicolons (with any whitespace around them), tolerating the session chatter most
// clients send after a statement.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, "; \t\r\n")
	return strings.TrimSpace(s)
}

// maskLiterals replaces each single-quoted literal with a run of 'x'
// characters of the same length, so the forbidden-keyword scan never
// matches text that only appears inside a string value.
func maskLiterals(s string) string {
	return literalRe.ReplaceAllStringFunc(s, func(lit string) string {
		return strings.Repeat("x", len(lit))
	})
}

// unquoteLiteral strips the surrounding single quotes from a matched
// literal and resolves backslash and doubled-quote escaping.
func unquoteLiteral(quoted string) string {
	inner := quoted[1 : len(quoted)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			i++
			b.WriteByte(inner[i])
			continue
		}
		if c == '\'' && i+1 < len(inner) && inner[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
