package reconcile

import "time"

// initialRetryDelay は失敗後の初回再試行までの遅延。
const initialRetryDelay = 30 * time.Second

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回30秒、2倍ずつ増加し、maxDelayを超えない。
func CalculateBackoff(consecutiveErrors int, maxDelay time.Duration) time.Duration {
	delay := initialRetryDelay
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if maxDelay > 0 && delay > maxDelay {
			return maxDelay
		}
	}
	return delay
}
