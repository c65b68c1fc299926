package storage

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Rebind rewrites ? placeholders into PostgreSQL's ordinal $N form when
// the connection uses the lib/pq driver. SQLite understands ? natively,
// so those queries pass through unchanged. Callers share settings-table
// SQL across both engines through this helper; it assumes the query
// text itself contains no literal question marks.
func Rebind(db *sql.DB, query string) string {
	if _, ok := db.Driver().(*pq.Driver); !ok {
		return query
	}
	return rebindDollar(query)
}

// rebindDollar numbers each ? placeholder left to right: $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
