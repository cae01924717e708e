package provision

import (
	"context"
	"fmt"

	"github.com/AdeChrysler/szen-bi/internal/event"
	"github.com/AdeChrysler/szen-bi/internal/model"
	"github.com/AdeChrysler/szen-bi/internal/repository"
)

// ensureCredential はワークスペースごとにAPIトークンを保証し、代表となるトークンを返す。
// ワークスペースが存在しない場合はワークスペースに紐づかないトークンを保証する。
// 既存のトークンはそのまま再利用し、再生成しない。
func (p *Provisioner) ensureCredential(ctx context.Context, tx repository.Tx, identity *model.Identity, workspaces []*model.Workspace) (token string, fallback bool, err error) {
	username := p.cfg.Identity.Username

	for _, ws := range workspaces {
		c, err := p.ensureOneCredential(ctx, tx, identity, ws, model.CredentialLabel(username, ws.Slug), p.cfg.Description)
		if err != nil {
			return "", false, err
		}
		if token == "" {
			token = c.Token
		}
	}

	if token != "" {
		return token, false, nil
	}

	c, err := p.ensureOneCredential(ctx, tx, identity, nil, model.CredentialLabel(username, ""), p.cfg.FallbackDescription)
	if err != nil {
		return "", false, err
	}
	return c.Token, true, nil
}

// ensureOneCredential はラベルで1件のトークンを検索し、なければ作成する。wsがnilの場合は
// ワークスペースに紐づかないトークンを扱う。
func (p *Provisioner) ensureOneCredential(ctx context.Context, tx repository.Tx, identity *model.Identity, ws *model.Workspace, label, description string) (*model.Credential, error) {
	repo := tx.Credentials()

	var workspaceID, workspaceName, workspaceSlug string
	if ws != nil {
		workspaceID, workspaceName, workspaceSlug = ws.ID, ws.Name, ws.Slug
	}

	c, err := repo.FindByLabel(ctx, identity.ID, workspaceID, label)
	if err != nil {
		return nil, fmt.Errorf("failed to look up api token %s: %w", label, err)
	}

	kind := event.KindSatisfied
	if c == nil {
		var created bool
		c, created, err = repo.FindOrCreate(ctx, &model.Credential{
			UserID:      identity.ID,
			WorkspaceID: workspaceID,
			Label:       label,
			Token:       p.newToken(),
			Description: description,
			UserType:    model.UserTypeBot,
			IsActive:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create api token %s: %w", label, err)
		}
		if created {
			kind = event.KindCreated
		}
	}

	p.sink.Emit(ctx, event.Event{
		Kind:          kind,
		Step:          event.StepCredential,
		Entity:        event.EntityCredential,
		ID:            c.ID,
		Label:         c.Label,
		WorkspaceName: workspaceName,
		WorkspaceSlug: workspaceSlug,
		Fallback:      ws == nil,
		Inactive:      !c.IsActive,
	})

	return c, nil
}
