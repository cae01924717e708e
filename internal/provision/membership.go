package provision

import (
	"context"
	"fmt"

	"github.com/AdeChrysler/szen-bi/internal/event"
	"github.com/AdeChrysler/szen-bi/internal/model"
	"github.com/AdeChrysler/szen-bi/internal/repository"
)

// ensureWorkspaceMemberships はボットを全ワークスペースの有効なメンバーにする。
// 既存の所属のロールは変更しない。処理したワークスペースを返す。
func (p *Provisioner) ensureWorkspaceMemberships(ctx context.Context, tx repository.Tx, identity *model.Identity) ([]*model.Workspace, error) {
	workspaces, err := tx.Workspaces().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	if len(workspaces) == 0 {
		p.sink.Emit(ctx, event.Event{Kind: event.KindNoWorkspaces, Step: event.StepWorkspaces})
		return nil, nil
	}

	repo := tx.WorkspaceMembers()
	for _, ws := range workspaces {
		member, created, err := repo.FindOrCreate(ctx, &model.WorkspaceMember{
			WorkspaceID: ws.ID,
			MemberID:    identity.ID,
			Role:        p.cfg.Role,
			IsActive:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to ensure membership of workspace %s: %w", ws.Slug, err)
		}

		kind := event.KindSatisfied
		switch {
		case created:
			kind = event.KindCreated
		case !member.IsActive:
			if err := repo.Activate(ctx, member.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate membership of workspace %s: %w", ws.Slug, err)
			}
			kind = event.KindReactivated
		}

		p.sink.Emit(ctx, event.Event{
			Kind:          kind,
			Step:          event.StepWorkspaces,
			Entity:        event.EntityWorkspaceMember,
			ID:            member.ID,
			Name:          ws.Name,
			WorkspaceName: ws.Name,
			WorkspaceSlug: ws.Slug,
		})
	}

	return workspaces, nil
}

// ensureProjectMemberships はボットを各ワークスペースの全プロジェクトの有効なメンバーにする。
// 処理したプロジェクト数を返す。
func (p *Provisioner) ensureProjectMemberships(ctx context.Context, tx repository.Tx, identity *model.Identity, workspaces []*model.Workspace) (int, error) {
	total := 0
	repo := tx.ProjectMembers()

	for _, ws := range workspaces {
		projects, err := tx.Projects().ListByWorkspace(ctx, ws.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to list projects of workspace %s: %w", ws.Slug, err)
		}

		if len(projects) == 0 {
			p.sink.Emit(ctx, event.Event{
				Kind:          event.KindNoProjects,
				Step:          event.StepProjects,
				WorkspaceName: ws.Name,
				WorkspaceSlug: ws.Slug,
			})
			continue
		}

		for _, proj := range projects {
			member, created, err := repo.FindOrCreate(ctx, &model.ProjectMember{
				ProjectID:   proj.ID,
				WorkspaceID: ws.ID,
				MemberID:    identity.ID,
				Role:        p.cfg.Role,
				IsActive:    true,
			})
			if err != nil {
				return 0, fmt.Errorf("failed to ensure membership of project %s: %w", proj.Name, err)
			}

			kind := event.KindSatisfied
			switch {
			case created:
				kind = event.KindCreated
			case !member.IsActive:
				if err := repo.Activate(ctx, member.ID); err != nil {
					return 0, fmt.Errorf("failed to reactivate membership of project %s: %w", proj.Name, err)
				}
				kind = event.KindReactivated
			}

			p.sink.Emit(ctx, event.Event{
				Kind:          kind,
				Step:          event.StepProjects,
				Entity:        event.EntityProjectMember,
				ID:            member.ID,
				Name:          proj.Name,
				WorkspaceName: ws.Name,
				WorkspaceSlug: ws.Slug,
			})
			total++
		}
	}

	return total, nil
}
