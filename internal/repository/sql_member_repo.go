package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AdeChrysler/szen-bi/internal/model"
)

// SQLWorkspaceMemberRepo はSQLを使用したワークスペース所属リポジトリ。
type SQLWorkspaceMemberRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLWorkspaceMemberRepo はSQLWorkspaceMemberRepoを生成する。
func NewSQLWorkspaceMemberRepo(db DBTX, d Dialect) *SQLWorkspaceMemberRepo {
	return &SQLWorkspaceMemberRepo{db: db, d: d}
}

// FindOrCreate は UNIQUE(workspace_id, member_id) 制約を利用した INSERT ON CONFLICT DO NOTHING で
// 所属を作成する。既に行がある場合（競合に負けた場合を含む）は既存行を返す。
func (r *SQLWorkspaceMemberRepo) FindOrCreate(ctx context.Context, member *model.WorkspaceMember) (*model.WorkspaceMember, bool, error) {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx, r.d.Rebind(
		`INSERT INTO workspace_members (id, workspace_id, member_id, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (workspace_id, member_id) DO NOTHING`),
		member.ID, member.WorkspaceID, member.MemberID, member.Role, member.IsActive, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert workspace member: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 1 {
		return member, true, nil
	}

	existing := &model.WorkspaceMember{}
	err = r.db.QueryRowContext(ctx, r.d.Rebind(
		`SELECT id, workspace_id, member_id, role, is_active
		 FROM workspace_members WHERE workspace_id = ? AND member_id = ?`),
		member.WorkspaceID, member.MemberID,
	).Scan(&existing.ID, &existing.WorkspaceID, &existing.MemberID, &existing.Role, &existing.IsActive)

	if err == sql.ErrNoRows {
		return nil, false, fmt.Errorf("workspace member %s/%s: %w", member.WorkspaceID, member.MemberID, model.ErrRowVanished)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find workspace member: %w", err)
	}

	return existing, false, nil
}

// Activate は所属のis_activeだけを更新する。ロールは変更しない。
func (r *SQLWorkspaceMemberRepo) Activate(ctx context.Context, id string) error {
	return activate(ctx, r.db, r.d, "workspace_members", id)
}

// SQLProjectMemberRepo はSQLを使用したプロジェクト所属リポジトリ。
type SQLProjectMemberRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLProjectMemberRepo はSQLProjectMemberRepoを生成する。
func NewSQLProjectMemberRepo(db DBTX, d Dialect) *SQLProjectMemberRepo {
	return &SQLProjectMemberRepo{db: db, d: d}
}

// FindOrCreate は UNIQUE(project_id, member_id) 制約を利用して所属を作成する。
// 既に行がある場合は既存行を返す。
func (r *SQLProjectMemberRepo) FindOrCreate(ctx context.Context, member *model.ProjectMember) (*model.ProjectMember, bool, error) {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx, r.d.Rebind(
		`INSERT INTO project_members (id, project_id, workspace_id, member_id, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, member_id) DO NOTHING`),
		member.ID, member.ProjectID, member.WorkspaceID, member.MemberID, member.Role, member.IsActive, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert project member: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 1 {
		return member, true, nil
	}

	existing := &model.ProjectMember{}
	err = r.db.QueryRowContext(ctx, r.d.Rebind(
		`SELECT id, project_id, workspace_id, member_id, role, is_active
		 FROM project_members WHERE project_id = ? AND member_id = ?`),
		member.ProjectID, member.MemberID,
	).Scan(&existing.ID, &existing.ProjectID, &existing.WorkspaceID, &existing.MemberID, &existing.Role, &existing.IsActive)

	if err == sql.ErrNoRows {
		return nil, false, fmt.Errorf("project member %s/%s: %w", member.ProjectID, member.MemberID, model.ErrRowVanished)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find project member: %w", err)
	}

	return existing, false, nil
}

// Activate は所属のis_activeだけを更新する。ロールは変更しない。
func (r *SQLProjectMemberRepo) Activate(ctx context.Context, id string) error {
	return activate(ctx, r.db, r.d, "project_members", id)
}

// activate はis_activeとupdated_atだけを更新する。tableは呼び出し側の定数に限る。
func activate(ctx context.Context, db DBTX, d Dialect, table, id string) error {
	result, err := db.ExecContext(ctx, d.Rebind(
		`UPDATE `+table+` SET is_active = ?, updated_at = ? WHERE id = ?`),
		true, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to activate %s: %w", table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %s", table, id)
	}

	return nil
}

// compile-time interface check
var (
	_ WorkspaceMemberRepository = (*SQLWorkspaceMemberRepo)(nil)
	_ ProjectMemberRepository   = (*SQLProjectMemberRepo)(nil)
)
