// Package event は調整処理（reconciliation）が発行する構造化イベントを定義する。
// 調整ロジックはイベントを発行するだけで、表示や集計は別のSink実装が担う。
package event

import (
	"context"
	"log/slog"
)

// Kind はイベントの種別を表す。
type Kind string

const (
	// KindStepStarted は調整ステップの開始。
	KindStepStarted Kind = "step_started"
	// KindCreated は行を新規作成した。
	KindCreated Kind = "created"
	// KindReactivated は無効だった行を有効化した。
	KindReactivated Kind = "reactivated"
	// KindSatisfied は既に望ましい状態だった。
	KindSatisfied Kind = "satisfied"
	// KindNormalized はユーザーの管理対象フィールドを正規値に揃えた。
	KindNormalized Kind = "normalized"
	// KindNoWorkspaces はワークスペースが1件も存在しない（警告）。
	KindNoWorkspaces Kind = "no_workspaces"
	// KindNoProjects はワークスペースにプロジェクトが存在しない。
	KindNoProjects Kind = "no_projects"
)

// Entity はイベントの対象を表す。
type Entity string

const (
	EntityIdentity        Entity = "identity"
	EntityWorkspaceMember Entity = "workspace_member"
	EntityProjectMember   Entity = "project_member"
	EntityCredential      Entity = "credential"
)

// Step は調整ステップの番号。
type Step int

const (
	StepIdentity Step = iota + 1
	StepWorkspaces
	StepProjects
	StepCredential
)

// StepCount は調整ステップの総数。
const StepCount = 4

// String はステップの名前を返す。
func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "Bot user"
	case StepWorkspaces:
		return "Workspace memberships"
	case StepProjects:
		return "Project memberships"
	case StepCredential:
		return "API token"
	default:
		return "unknown"
	}
}

// Event は調整処理の1つの出来事を表す。
type Event struct {
	Kind   Kind
	Step   Step
	Entity Entity

	// 対象の識別情報。該当しないフィールドは空。
	ID            string
	Name          string
	WorkspaceName string
	WorkspaceSlug string
	Label         string
	Fallback      bool
	// Inactive は再利用したトークンが無効化されていることを示す。
	Inactive bool
}

// Sink はイベントの受け手。
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// SinkFunc は関数をSinkとして扱うアダプタ。
type SinkFunc func(ctx context.Context, e Event)

// Emit はfを呼び出す。
func (f SinkFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }

// Discard は何もしないSink。
var Discard Sink = SinkFunc(func(context.Context, Event) {})

type multiSink []Sink

// Multi は複数のSinkへ順にイベントを配送するSinkを返す。nilは無視する。
func Multi(sinks ...Sink) Sink {
	var m multiSink
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

// NewLogSink はイベントをslogに構造化ログとして出力するSinkを返す。
// ワークスペースが存在しない場合は警告レベル、ステップ開始はデバッグレベルで出力する。
func NewLogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(ctx context.Context, e Event) {
		level := slog.LevelInfo
		if e.Inactive {
			level = slog.LevelWarn
		}
		switch e.Kind {
		case KindNoWorkspaces:
			level = slog.LevelWarn
		case KindStepStarted:
			level = slog.LevelDebug
		}

		attrs := []any{
			slog.String("kind", string(e.Kind)),
			slog.Int("step", int(e.Step)),
		}
		if e.Entity != "" {
			attrs = append(attrs, slog.String("entity", string(e.Entity)))
		}
		if e.ID != "" {
			attrs = append(attrs, slog.String("id", e.ID))
		}
		if e.Name != "" {
			attrs = append(attrs, slog.String("name", e.Name))
		}
		if e.WorkspaceSlug != "" {
			attrs = append(attrs, slog.String("workspace", e.WorkspaceSlug))
		}
		if e.Label != "" {
			attrs = append(attrs, slog.String("label", e.Label))
		}
		if e.Fallback {
			attrs = append(attrs, slog.Bool("fallback", true))
		}
		if e.Inactive {
			attrs = append(attrs, slog.Bool("inactive", true))
		}

		logger.Log(ctx, level, "reconcile_event", attrs...)
	})
}
