package events

import (
	"context"
	"log/slog"
)

// Publisher はイベント送信先のインターフェース。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher はAMQP_URL未設定時に使う何もしないPublisher。
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

// Publish は何もせずnilを返す。
func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// Close は何もせずnilを返す。
func (NoopPublisher) Close() error { return nil }

// Recorder はイベント発行結果を記録するメトリクスのインターフェース。
type Recorder interface {
	RecordEventPublished(eventType string)
	RecordEventFailed(eventType string)
}

// Emitter はサービス層からイベントを発行するためのヘルパー。
// 送信エラーはログとメトリクスに記録して握りつぶす。
type Emitter struct {
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
}

// NewEmitter はEmitterを生成する。publisherがnilの場合はNoopPublisherを使う。
// recorderはnilでもよい。
func NewEmitter(publisher Publisher, recorder Recorder, logger *slog.Logger) *Emitter {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{publisher: publisher, recorder: recorder, logger: logger}
}

// Emit はイベントを発行する。nilのEmitterに対しては何もしない。
func (e *Emitter) Emit(ctx context.Context, t Type, id int64) {
	if e == nil {
		return
	}

	if err := e.publisher.Publish(ctx, NewEvent(t, id)); err != nil {
		e.logger.Warn("failed to publish event",
			slog.String("type", string(t)),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		if e.recorder != nil {
			e.recorder.RecordEventFailed(string(t))
		}
		return
	}

	if e.recorder != nil {
		e.recorder.RecordEventPublished(string(t))
	}
}
