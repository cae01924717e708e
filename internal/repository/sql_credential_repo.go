package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AdeChrysler/szen-bi/internal/model"
)

// SQLCredentialRepo はSQLを使用したAPIトークンリポジトリ。
type SQLCredentialRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLCredentialRepo はSQLCredentialRepoを生成する。
func NewSQLCredentialRepo(db DBTX, d Dialect) *SQLCredentialRepo {
	return &SQLCredentialRepo{db: db, d: d}
}

// FindByLabel は(user_id, workspace_id, label)でトークンを検索する。
// workspaceIDが空の場合はworkspace_id IS NULLの行を検索する。見つからない場合はnilを返す。
func (r *SQLCredentialRepo) FindByLabel(ctx context.Context, userID, workspaceID, label string) (*model.Credential, error) {
	query := `SELECT id, user_id, workspace_id, label, token, description, user_type, is_active
		 FROM api_tokens WHERE user_id = ? AND workspace_id = ? AND label = ?`
	args := []any{userID, workspaceID, label}
	if workspaceID == "" {
		query = `SELECT id, user_id, workspace_id, label, token, description, user_type, is_active
		 FROM api_tokens WHERE user_id = ? AND workspace_id IS NULL AND label = ?`
		args = []any{userID, label}
	}

	c := &model.Credential{}
	var wsID sql.NullString
	err := r.db.QueryRowContext(ctx, r.d.Rebind(query), args...).Scan(
		&c.ID, &c.UserID, &wsID, &c.Label, &c.Token, &c.Description, &c.UserType, &c.IsActive,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find api token: %w", err)
	}
	c.WorkspaceID = wsID.String

	return c, nil
}

// FindOrCreate はトークンを作成する。
// (user_id, workspace_id, label) の一意制約、およびworkspace_idがNULLの場合の部分一意インデックスに
// 競合した場合はINSERTが何もしないため、既存行を再取得して返す。既存のトークンは上書きしない。
func (r *SQLCredentialRepo) FindOrCreate(ctx context.Context, credential *model.Credential) (*model.Credential, bool, error) {
	if credential.ID == "" {
		credential.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	wsID := sql.NullString{String: credential.WorkspaceID, Valid: credential.WorkspaceID != ""}

	result, err := r.db.ExecContext(ctx, r.d.Rebind(
		`INSERT INTO api_tokens (id, user_id, workspace_id, label, token, description, user_type, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`),
		credential.ID, credential.UserID, wsID, credential.Label, credential.Token,
		credential.Description, credential.UserType, credential.IsActive, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert api token: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 1 {
		return credential, true, nil
	}

	existing, err := r.FindByLabel(ctx, credential.UserID, credential.WorkspaceID, credential.Label)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("api token %q: %w", credential.Label, model.ErrRowVanished)
	}

	return existing, false, nil
}

// compile-time interface check
var _ CredentialRepository = (*SQLCredentialRepo)(nil)
