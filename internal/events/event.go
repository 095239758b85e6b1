// Package events はドメインイベントの発行を提供する。
//
// プロジェクトと工数記録の作成・更新・削除が成功した後に、
// {type, id, timestamp} 形式のJSONイベントをAMQPブローカーへ送る。
// 発行はベストエフォートで、失敗してもリクエストは失敗させない。
package events

import (
	"encoding/json"
	"time"
)

// Type はドメインイベントの種別。
type Type string

// イベント種別
const (
	ProjectCreated   Type = "project.created"
	ProjectUpdated   Type = "project.updated"
	ProjectDeleted   Type = "project.deleted"
	TimeEntryCreated Type = "time_entry.created"
	TimeEntryUpdated Type = "time_entry.updated"
	TimeEntryDeleted Type = "time_entry.deleted"
)

// Event はブローカーに送るメッセージ本体。
// 受信側は必要に応じてIDから最新の状態を取得する。
type Event struct {
	Type      Type      `json:"type"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent は現在時刻のタイムスタンプを持つイベントを生成する。
func NewEvent(t Type, id int64) Event {
	return Event{Type: t, ID: id, Timestamp: time.Now().UTC()}
}

// ToJSON はイベントをJSONに変換する。
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
