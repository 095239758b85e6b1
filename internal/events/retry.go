package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy はブローカー接続の再試行設定。
type RetryPolicy struct {
	Attempts     int           // 試行回数（初回を含む）
	InitialDelay time.Duration // 初回失敗後の待ち時間
	MaxDelay     time.Duration // 待ち時間の上限
}

// DefaultRetryPolicy はデフォルトの再試行設定を返す。
// 5回まで試行し、待ち時間は500msから2倍ずつ増加、最大8秒。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
	}
}

// Backoff は連続失敗回数に基づいて指数バックオフ遅延を計算する。
func (p RetryPolicy) Backoff(consecutiveFailures int) time.Duration {
	delay := p.InitialDelay
	for i := 0; i < consecutiveFailures; i++ {
		delay *= 2
		if delay > p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// Connect はdialが成功するまで指数バックオフで再試行する。
// 全試行が失敗した場合は最後のエラーを返す。ctxがキャンセルされると待機を中断する。
func Connect(ctx context.Context, policy RetryPolicy, dial func() (Publisher, error), logger *slog.Logger) (Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		p, err := dial()
		if err == nil {
			return p, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := policy.Backoff(attempt)
		logger.Warn("broker connection failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("broker connection aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("broker connection failed after %d attempts: %w", attempts, lastErr)
}
