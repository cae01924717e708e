package repository

import (
	"context"
	"fmt"

	"github.com/AdeChrysler/szen-bi/internal/database"
)

// SQLStore は database/sql を使用したStore実装。
// PostgreSQL（lib/pq）とSQLite（modernc.org/sqlite）の両方に対応する。
type SQLStore struct {
	db      TxBeginner
	dialect Dialect
}

// NewSQLStore はSQLStoreを生成する。
func NewSQLStore(db TxBeginner, driver database.Driver) *SQLStore {
	return &SQLStore{db: db, dialect: NewDialect(driver)}
}

// InTx はトランザクションを開始し、fnにトランザクションへ束縛されたリポジトリ群を渡す。
// fnがエラーを返した場合、またはpanicした場合はロールバックする。
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// コミット後のRollbackはsql.ErrTxDoneを返すだけで無害
	defer sqlTx.Rollback()

	if err := fn(newSQLTx(sqlTx, s.dialect)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// sqlTx は1つの *sql.Tx に束縛されたリポジトリ群。
type sqlTx struct {
	identities       *SQLIdentityRepo
	workspaces       *SQLWorkspaceRepo
	workspaceMembers *SQLWorkspaceMemberRepo
	projects         *SQLProjectRepo
	projectMembers   *SQLProjectMemberRepo
	credentials      *SQLCredentialRepo
}

func newSQLTx(db DBTX, d Dialect) *sqlTx {
	return &sqlTx{
		identities:       NewSQLIdentityRepo(db, d),
		workspaces:       NewSQLWorkspaceRepo(db, d),
		workspaceMembers: NewSQLWorkspaceMemberRepo(db, d),
		projects:         NewSQLProjectRepo(db, d),
		projectMembers:   NewSQLProjectMemberRepo(db, d),
		credentials:      NewSQLCredentialRepo(db, d),
	}
}

func (t *sqlTx) Identities() IdentityRepository             { return t.identities }
func (t *sqlTx) Workspaces() WorkspaceRepository             { return t.workspaces }
func (t *sqlTx) WorkspaceMembers() WorkspaceMemberRepository { return t.workspaceMembers }
func (t *sqlTx) Projects() ProjectRepository                 { return t.projects }
func (t *sqlTx) ProjectMembers() ProjectMemberRepository     { return t.projectMembers }
func (t *sqlTx) Credentials() CredentialRepository           { return t.credentials }

// compile-time interface check
var (
	_ Store = (*SQLStore)(nil)
	_ Tx    = (*sqlTx)(nil)
)
