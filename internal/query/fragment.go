package query

import (
	"fmt"
	"strings"
)

// Paren wraps a non-empty fragment in parentheses.
func Paren(fragment string) string {
	if fragment == "" {
		return ""
	}
	return "(" + fragment + ")"
}

// And joins the non-empty fragments with AND.
func And(fragments ...string) string {
	return join(" AND ", fragments)
}

// Or joins the non-empty fragments with OR.
func Or(fragments ...string) string {
	return join(" OR ", fragments)
}

func join(sep string, fragments []string) string {
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, sep)
}

// Where renders " WHERE <predicate>", or nothing for an empty predicate.
func Where(predicate string) string {
	if predicate == "" {
		return ""
	}
	return " WHERE " + predicate
}

// DistinctRemarks renders the remark query for table and column. The inner
// statement applies predicate, omitting WHERE when it is empty; the outer one
// drops NULL and blank remarks and fixes the listing order.
func DistinctRemarks(table, column, predicate string) string {
	inner := fmt.Sprintf("SELECT DISTINCT TRIM(%s) AS remark FROM %s%s", column, table, Where(predicate))
	return fmt.Sprintf("SELECT remark FROM (%s) AS remarks WHERE remark <> '' ORDER BY remark", inner)
}
