package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AdeChrysler/szen-bi/internal/model"
)

// SQLIdentityRepo はSQLを使用したボットユーザーリポジトリ。
type SQLIdentityRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLIdentityRepo はSQLIdentityRepoを生成する。
func NewSQLIdentityRepo(db DBTX, d Dialect) *SQLIdentityRepo {
	return &SQLIdentityRepo{db: db, d: d}
}

// FindByEmail はemailでユーザーを検索する。見つからない場合はnilを返す。
func (r *SQLIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx, r.d.Rebind(
		`SELECT id, email, username, display_name, password, is_bot, is_active
		 FROM users WHERE email = ?`),
		email,
	).Scan(
		&identity.ID, &identity.Email, &identity.Username, &identity.DisplayName,
		&identity.Password, &identity.IsBot, &identity.IsActive,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return identity, nil
}

// FindOrCreate はemailの一意制約で保護されたINSERTを行う。
// 同時実行で先に作成された場合はINSERTが何もしないため、既存行を再取得して返す。
// ユーザー名が別のユーザーと衝突した場合はmodel.ErrHandleConflictを返す。
func (r *SQLIdentityRepo) FindOrCreate(ctx context.Context, identity *model.Identity) (*model.Identity, bool, error) {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx, r.d.Rebind(
		`INSERT INTO users (id, email, username, display_name, password, is_bot, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`),
		identity.ID, identity.Email, identity.Username, identity.DisplayName,
		identity.Password, identity.IsBot, identity.IsActive, now, now,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("failed to insert user: %w: %w", model.ErrHandleConflict, err)
		}
		return nil, false, fmt.Errorf("failed to insert user: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 1 {
		return identity, true, nil
	}

	existing, err := r.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, model.ErrIdentityVanished
	}

	return existing, false, nil
}

// Update は管理対象フィールドを1回のUPDATEで書き込む。
func (r *SQLIdentityRepo) Update(ctx context.Context, identity *model.Identity) error {
	result, err := r.db.ExecContext(ctx, r.d.Rebind(
		`UPDATE users SET username = ?, display_name = ?, is_bot = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`),
		identity.Username, identity.DisplayName, identity.IsBot, identity.IsActive,
		time.Now().UTC(), identity.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("failed to update user: %w: %w", model.ErrHandleConflict, err)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", identity.ID)
	}

	return nil
}

// compile-time interface check
var _ IdentityRepository = (*SQLIdentityRepo)(nil)
