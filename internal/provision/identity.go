package provision

import (
	"context"
	"fmt"

	"github.com/AdeChrysler/szen-bi/internal/event"
	"github.com/AdeChrysler/szen-bi/internal/model"
	"github.com/AdeChrysler/szen-bi/internal/repository"
)

// resolveIdentity はemailでボットユーザーを解決する。
// 存在しなければ作成し、存在すれば管理対象フィールドを正規値に揃える。
// 書き込みは高々1回。
func (p *Provisioner) resolveIdentity(ctx context.Context, tx repository.Tx) (identity *model.Identity, created, normalized bool, err error) {
	repo := tx.Identities()
	spec := p.cfg.Identity

	identity, err = repo.FindByEmail(ctx, spec.Email)
	if err != nil {
		return nil, false, false, fmt.Errorf("failed to look up bot user: %w", err)
	}

	if identity == nil {
		identity, created, err = repo.FindOrCreate(ctx, &model.Identity{
			Email:       spec.Email,
			Username:    spec.Username,
			DisplayName: spec.DisplayName,
			Password:    model.UnusablePassword,
			IsBot:       true,
			IsActive:    true,
		})
		if err != nil {
			return nil, false, false, fmt.Errorf("failed to create bot user: %w", err)
		}
		if created {
			p.emitIdentity(ctx, event.KindCreated, identity)
			return identity, true, false, nil
		}
		// 同時実行に作成を先取りされた。勝った側の行を正規化の対象にする
	}

	if identity.Matches(spec) {
		p.emitIdentity(ctx, event.KindSatisfied, identity)
		return identity, false, false, nil
	}

	identity.Normalize(spec)
	if err := repo.Update(ctx, identity); err != nil {
		return nil, false, false, fmt.Errorf("failed to normalize bot user: %w", err)
	}
	p.emitIdentity(ctx, event.KindNormalized, identity)

	return identity, false, true, nil
}

func (p *Provisioner) emitIdentity(ctx context.Context, kind event.Kind, identity *model.Identity) {
	p.sink.Emit(ctx, event.Event{
		Kind:   kind,
		Step:   event.StepIdentity,
		Entity: event.EntityIdentity,
		ID:     identity.ID,
		Name:   identity.Username,
	})
}
