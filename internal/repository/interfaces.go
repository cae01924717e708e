// Package repository はデータ永続化のインターフェースを定義する。
// すべてのリポジトリは明示的なトランザクションハンドル（Tx）から取得し、
// 呼び出し側がトランザクション境界を所有する。
package repository

import (
	"context"
	"database/sql"

	"github.com/AdeChrysler/szen-bi/internal/model"
)

// IdentityRepository はボットユーザー（usersテーブル）の永続化インターフェース。
type IdentityRepository interface {
	// FindByEmail はemailでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// FindOrCreate はemailの一意制約で保護された作成を行う。
	// 既に同じemailの行が存在する場合は作成せずに既存行を返し、createdはfalseになる。
	FindOrCreate(ctx context.Context, identity *model.Identity) (found *model.Identity, created bool, err error)

	// Update はユーザー名、表示名、ボットフラグ、有効フラグを1回の書き込みで更新する。
	Update(ctx context.Context, identity *model.Identity) error
}

// WorkspaceRepository はワークスペースの読み取りインターフェース。
type WorkspaceRepository interface {
	// List は全ワークスペースを返す。
	List(ctx context.Context) ([]*model.Workspace, error)
}

// WorkspaceMemberRepository はワークスペース所属の永続化インターフェース。
type WorkspaceMemberRepository interface {
	// FindOrCreate は(workspace_id, member_id)で所属を検索し、なければ作成する。
	// 作成が競合した場合は勝った側の行を返す。
	FindOrCreate(ctx context.Context, member *model.WorkspaceMember) (found *model.WorkspaceMember, created bool, err error)

	// Activate は所属を有効化する。ロールは変更しない。
	Activate(ctx context.Context, id string) error
}

// ProjectRepository はプロジェクトの読み取りインターフェース。
type ProjectRepository interface {
	// ListByWorkspace は指定ワークスペースに属するプロジェクトを返す。
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Project, error)
}

// ProjectMemberRepository はプロジェクト所属の永続化インターフェース。
type ProjectMemberRepository interface {
	// FindOrCreate は(project_id, member_id)で所属を検索し、なければ作成する。
	FindOrCreate(ctx context.Context, member *model.ProjectMember) (found *model.ProjectMember, created bool, err error)

	// Activate は所属を有効化する。ロールは変更しない。
	Activate(ctx context.Context, id string) error
}

// CredentialRepository はAPIトークンの永続化インターフェース。
type CredentialRepository interface {
	// FindByLabel は(user_id, workspace_id, label)でトークンを検索する。
	// workspaceIDが空の場合はワークスペースに紐づかないトークンを検索する。
	// 見つからない場合はnilを返す。
	FindByLabel(ctx context.Context, userID, workspaceID, label string) (*model.Credential, error)

	// FindOrCreate はトークンを作成する。同じラベルの行が既に存在する場合は
	// 作成せずに既存行を返す。既存のトークン文字列は決して上書きしない。
	FindOrCreate(ctx context.Context, credential *model.Credential) (found *model.Credential, created bool, err error)
}

// Tx は1つのトランザクションに束縛されたリポジトリ群。
// Store.InTxのコールバックにのみ渡され、コールバック終了後は使用しない。
type Tx interface {
	Identities() IdentityRepository
	Workspaces() WorkspaceRepository
	WorkspaceMembers() WorkspaceMemberRepository
	Projects() ProjectRepository
	ProjectMembers() ProjectMemberRepository
	Credentials() CredentialRepository
}

// Store はトランザクション境界を提供する。
type Store interface {
	// InTx はトランザクションを開始してfnを実行する。
	// fnがnilを返した場合はコミットし、エラーを返した場合はすべての書き込みをロールバックする。
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// DBTX は *sql.DB と *sql.Tx の共通部分。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
