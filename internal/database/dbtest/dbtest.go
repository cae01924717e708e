// Package dbtest はテスト用に組み込みスキーマを適用したSQLiteデータベースを提供する。
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/AdeChrysler/szen-bi/internal/database"
)

// NewSQLite は一時ディレクトリにSQLiteデータベースを作成し、マイグレーションを適用して返す。
// データベースはテスト終了時にクローズされる。
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "plane.db")
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	db, _, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("SQLiteのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// MustExec はクエリを実行し、失敗した場合はテストを終了する。
func MustExec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("クエリ実行に失敗: %v\nquery: %s", err, query)
	}
}

// Count は指定テーブルの行数を返す。tableはテストコード内の定数に限る。
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("%s の件数取得に失敗: %v", table, err)
	}
	return n
}

// SeedWorkspace はワークスペースを挿入する。
func SeedWorkspace(t testing.TB, db *sql.DB, id, name, slug string) {
	t.Helper()
	MustExec(t, db, `INSERT INTO workspaces (id, name, slug) VALUES (?, ?, ?)`, id, name, slug)
}

// SeedProject はプロジェクトを挿入する。
func SeedProject(t testing.TB, db *sql.DB, id, workspaceID, name string) {
	t.Helper()
	MustExec(t, db, `INSERT INTO projects (id, workspace_id, name) VALUES (?, ?, ?)`, id, workspaceID, name)
}

// SeedUser はユーザーを挿入する。
func SeedUser(t testing.TB, db *sql.DB, id, email, username string) {
	t.Helper()
	MustExec(t, db, `INSERT INTO users (id, email, username) VALUES (?, ?, ?)`, id, email, username)
}
