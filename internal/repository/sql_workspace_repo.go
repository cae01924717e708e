package repository

import (
	"context"
	"fmt"

	"github.com/AdeChrysler/szen-bi/internal/model"
)

// SQLWorkspaceRepo はSQLを使用したワークスペースリポジトリ。読み取り専用。
type SQLWorkspaceRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLWorkspaceRepo はSQLWorkspaceRepoを生成する。
func NewSQLWorkspaceRepo(db DBTX, d Dialect) *SQLWorkspaceRepo {
	return &SQLWorkspaceRepo{db: db, d: d}
}

// List は全ワークスペースを作成順に返す。
func (r *SQLWorkspaceRepo) List(ctx context.Context) ([]*model.Workspace, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug FROM workspaces ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*model.Workspace
	for rows.Next() {
		ws := &model.Workspace{}
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspaces: %w", err)
	}

	return workspaces, nil
}

// SQLProjectRepo はSQLを使用したプロジェクトリポジトリ。読み取り専用。
type SQLProjectRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLProjectRepo はSQLProjectRepoを生成する。
func NewSQLProjectRepo(db DBTX, d Dialect) *SQLProjectRepo {
	return &SQLProjectRepo{db: db, d: d}
}

// ListByWorkspace は指定ワークスペースのプロジェクトを作成順に返す。
func (r *SQLProjectRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(
		`SELECT id, workspace_id, name, identifier FROM projects
		 WHERE workspace_id = ? ORDER BY created_at, id`),
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p := &model.Project{}
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Identifier); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// compile-time interface check
var (
	_ WorkspaceRepository = (*SQLWorkspaceRepo)(nil)
	_ ProjectRepository   = (*SQLProjectRepo)(nil)
)
