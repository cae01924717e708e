// Package provision はボットユーザーを望ましい状態へ収束させる調整処理を提供する。
//
// 調整は4つのステップを1つのトランザクション内で順に実行する。
//  1. ボットユーザーの解決（作成または正規化）
//  2. 全ワークスペースへの所属
//  3. 全プロジェクトへの所属
//  4. ワークスペースごとのAPIトークン発行
//
// 各ステップは何度実行しても重複した副作用を生じない。
package provision

import (
	"context"
	"fmt"

	"github.com/AdeChrysler/szen-bi/internal/event"
	"github.com/AdeChrysler/szen-bi/internal/model"
	"github.com/AdeChrysler/szen-bi/internal/repository"
)

// Config は調整処理の入力となる正規値。
type Config struct {
	Identity model.IdentitySpec
	Role     model.Role
	// Description はワークスペース単位のトークンの説明文。
	Description string
	// FallbackDescription はワークスペースに紐づかないトークンの説明文。
	FallbackDescription string
}

// Result は調整処理の結果。
type Result struct {
	IdentityID string
	Email      string
	// Token は代表となるAPIトークン。最初に見つかった、または作成したトークン。
	Token string

	IdentityCreated bool
	Normalized      bool
	Workspaces      int
	Projects        int
	// FallbackToken はワークスペースに紐づかないトークンを返したことを示す。
	FallbackToken bool
}

// Provisioner はボットユーザーの調整処理を実行する。
type Provisioner struct {
	store    repository.Store
	cfg      Config
	sink     event.Sink
	newToken func() string
}

// Option はProvisionerの設定を変更する。
type Option func(*Provisioner)

// WithTokenGenerator はトークン文字列の生成関数を差し替える。
func WithTokenGenerator(fn func() string) Option {
	return func(p *Provisioner) {
		p.newToken = fn
	}
}

// NewProvisioner はProvisionerを生成する。sinkがnilの場合はイベントを破棄する。
func NewProvisioner(store repository.Store, cfg Config, sink event.Sink, opts ...Option) *Provisioner {
	if sink == nil {
		sink = event.Discard
	}
	p := &Provisioner{
		store:    store,
		cfg:      cfg,
		sink:     sink,
		newToken: model.NewToken,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run は調整処理を1回実行する。
// すべての書き込みは1つのトランザクションで行い、いずれかのステップが失敗した場合は
// 何も書き込まれない。
func (p *Provisioner) Run(ctx context.Context) (*Result, error) {
	var result *Result
	err := p.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := p.reconcile(ctx, tx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("provisioning failed: %w", err)
	}
	return result, nil
}

func (p *Provisioner) reconcile(ctx context.Context, tx repository.Tx) (*Result, error) {
	p.stepStarted(ctx, event.StepIdentity)
	identity, created, normalized, err := p.resolveIdentity(ctx, tx)
	if err != nil {
		return nil, err
	}

	p.stepStarted(ctx, event.StepWorkspaces)
	workspaces, err := p.ensureWorkspaceMemberships(ctx, tx, identity)
	if err != nil {
		return nil, err
	}

	p.stepStarted(ctx, event.StepProjects)
	projects, err := p.ensureProjectMemberships(ctx, tx, identity, workspaces)
	if err != nil {
		return nil, err
	}

	p.stepStarted(ctx, event.StepCredential)
	token, fallback, err := p.ensureCredential(ctx, tx, identity, workspaces)
	if err != nil {
		return nil, err
	}

	return &Result{
		IdentityID:      identity.ID,
		Email:           identity.Email,
		Token:           token,
		IdentityCreated: created,
		Normalized:      normalized,
		Workspaces:      len(workspaces),
		Projects:        projects,
		FallbackToken:   fallback,
	}, nil
}

func (p *Provisioner) stepStarted(ctx context.Context, step event.Step) {
	p.sink.Emit(ctx, event.Event{Kind: event.KindStepStarted, Step: step})
}
