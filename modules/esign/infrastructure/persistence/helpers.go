package persistence

import (
	"strconv"
	"strings"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

func joinAnd(clauses []string) string {
	return strings.Join(clauses, " AND ")
}
