package repository

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AdeChrysler/szen-bi/internal/database"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pgUniqueViolation = "23505"

// Dialect はSQL方言の差異を吸収する。
// クエリは ? プレースホルダで記述し、PostgreSQLでは $1, $2 ... に置き換える。
type Dialect struct {
	driver database.Driver
}

// NewDialect はドライバに対応するDialectを返す。
func NewDialect(driver database.Driver) Dialect {
	return Dialect{driver: driver}
}

// Rebind は ? プレースホルダをドライバの形式に変換する。
func (d Dialect) Rebind(query string) string {
	if d.driver != database.DriverPostgres {
		return query
	}

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

// IsUniqueViolation はerrが一意制約違反かどうかを判定する。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// 拡張エラーコードが無効な接続ではメッセージで判定する
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}

	return false
}
