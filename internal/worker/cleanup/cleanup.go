// Package cleanup は孤立した工数記録の自動削除ジョブを提供する。
// プロジェクト削除は工数記録を同一トランザクションで削除するが、
// 手動でのデータ投入などで参照先を失った行が残る可能性があるため、
// SQLバックエンドでは定期的に掃除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// orphanDeleteQuery は参照先プロジェクトが存在しない工数記録を削除する。
// PostgreSQLとSQLiteの両方でそのまま実行できる。
const orphanDeleteQuery = `DELETE FROM time_entries WHERE project_id NOT IN (SELECT id FROM projects)`

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Recorder は削除件数をメトリクスに記録するインターフェース。
type Recorder interface {
	RecordOrphansDeleted(count int64)
}

// CleanupJob は孤立工数記録の削除ジョブ。
// 冪等であり、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	db       Executor
	logger   *slog.Logger
	recorder Recorder
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, recorder Recorder) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:       db,
		logger:   logger,
		recorder: recorder,
	}
}

// Run は孤立工数記録を1回削除し、削除件数を返す。
func (j *CleanupJob) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, orphanDeleteQuery)
	if err != nil {
		j.logger.Error("孤立工数記録の削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("孤立工数記録の削除に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.recorder != nil && deletedCount > 0 {
		j.recorder.RecordOrphansDeleted(deletedCount)
	}

	j.logger.Info("孤立工数記録のクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return deletedCount, nil
}

// Start はinterval間隔でRunを実行する。起動直後に1回実行し、
// コンテキストがキャンセルされるまで継続する。個々の実行失敗はログのみで継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	_, _ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_, _ = j.Run(ctx)
		}
	}
}
