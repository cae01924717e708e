// Package reconcile はボットユーザーの調整処理を定期的に実行するワーカーを提供する。
// 後から作成されたワークスペースやプロジェクトにもボットを追従させる。
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/AdeChrysler/szen-bi/internal/metrics"
	"github.com/AdeChrysler/szen-bi/internal/provision"
)

// Runner は調整処理1回の実行インターフェース。
type Runner interface {
	Run(ctx context.Context) (*provision.Result, error)
}

// Scheduler は一定間隔またはトリガーで調整処理を逐次実行する。
// 実行は1つのゴルーチンからのみ行い、連続する実行の間隔はminGap以上空ける。
// 失敗した場合は間隔を待たずに指数バックオフで再試行する。
type Scheduler struct {
	runner  Runner
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	limiter *rate.Limiter
	trigger chan struct{}

	consecutiveErrors int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// collectorはnilでもよい。minGapが0以下の場合は実行間隔を制限しない。
func NewScheduler(runner Runner, collector metrics.MetricsCollector, logger *slog.Logger, minGap time.Duration) *Scheduler {
	limit := rate.Inf
	if minGap > 0 {
		limit = rate.Every(minGap)
	}
	return &Scheduler{
		runner:  runner,
		metrics: collector,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		trigger: make(chan struct{}, 1),
	}
}

// Trigger は次の実行を要求する。既に要求が保留中の場合はまとめられ、falseを返す。
// ブロックしない。
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start は起動直後に1回実行し、以降はintervalごとまたはTriggerのたびに実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("調整スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	timer := time.NewTimer(s.runAndNext(ctx, interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("調整スケジューラを停止しました")
			return
		case <-timer.C:
			timer.Reset(s.runAndNext(ctx, interval))
		case <-s.trigger:
			timer.Reset(s.runAndNext(ctx, interval))
		}
	}
}

// runAndNext は1回実行し、次の実行までの待ち時間を返す。
func (s *Scheduler) runAndNext(ctx context.Context, interval time.Duration) time.Duration {
	if err := s.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return interval
		}
		s.consecutiveErrors++
		delay := CalculateBackoff(s.consecutiveErrors-1, interval)
		s.logger.Error("調整処理の実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("consecutive_errors", s.consecutiveErrors),
			slog.Duration("retry_in", delay),
		)
		return delay
	}
	s.consecutiveErrors = 0
	return interval
}

// RunOnce は最小間隔を待ってから調整処理を1回実行する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("reconcile run cancelled: %w", err)
	}

	start := time.Now()
	res, err := s.runner.Run(ctx)
	duration := time.Since(start)

	if err != nil {
		s.record(metrics.OutcomeFailure, duration)
		return err
	}
	s.record(metrics.OutcomeSuccess, duration)

	s.logger.Info("調整処理が完了しました",
		slog.String("bot_user_id", res.IdentityID),
		slog.Int("workspaces", res.Workspaces),
		slog.Int("projects", res.Projects),
		slog.Bool("normalized", res.Normalized),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return nil
}

func (s *Scheduler) record(outcome string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordRun(outcome, duration)
	}
}
