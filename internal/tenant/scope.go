package tenant

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Scope appends an account_id filter to a SQL query when a tenant is bound.
// The filter is AND-ed onto an existing WHERE clause, otherwise a WHERE
// clause is added. Without a bound tenant the query is returned unchanged;
// callers in that mode supply explicit scoping themselves.
func Scope(ctx context.Context, query string, args ...any) (string, []any) {
	accountID, ok := AccountID(ctx)
	if !ok {
		return query, args
	}
	return scopeTo(accountID, query, args)
}

// ScopeColumn behaves like Scope but filters a qualified column, for queries
// that join tenant-owned tables under an alias.
func ScopeColumn(ctx context.Context, column, query string, args ...any) (string, []any) {
	accountID, ok := AccountID(ctx)
	if !ok {
		return query, args
	}
	args = append(args, accountID)
	clause := fmt.Sprintf("%s = $%d", column, len(args))
	return appendClause(query, clause), args
}

func scopeTo(accountID, query string, args []any) (string, []any) {
	args = append(args, accountID)
	clause := fmt.Sprintf("account_id = $%d", len(args))
	return appendClause(query, clause), args
}

var (
	scopeWhereRe = regexp.MustCompile(`(?i)\bwhere\b`)
	scopeTailRe  = regexp.MustCompile(`(?i)\b(order\s+by|group\s+by|limit|returning)\b`)
)

// appendClause injects the filter before any ORDER BY / GROUP BY / LIMIT /
// RETURNING tail. Keywords are matched on word boundaries so the
// tab-indented multiline queries the stores pass are handled the same as
// single-line ones.
func appendClause(query, clause string) string {
	base, tail := query, ""
	if loc := scopeTailRe.FindStringIndex(query); loc != nil {
		base, tail = query[:loc[0]], query[loc[0]:]
	}
	sep := " where "
	if scopeWhereRe.MatchString(base) {
		sep = " and "
	}
	out := strings.TrimRight(base, " \t\n") + sep + clause
	if tail != "" {
		out += " " + tail
	}
	return out
}
