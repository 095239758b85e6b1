// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はプロジェクト名や作業メモなどユーザーが入力したテキストを検査する。
// HTMLマークアップを含む入力は受け付けず、それ以外は前後の空白を除いてそのまま保存する。
// 値はプレーンテキストとして扱われ、フロントエンド側でHTMLとして解釈されることはない。
package security

import (
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrMarkup は入力にHTMLマークアップが含まれる場合に返される。
var ErrMarkup = errors.New("text contains HTML markup")

// TextSanitizer はプレーンテキスト入力の検査機能のインターフェース。
type TextSanitizer interface {
	// Clean は前後の空白を取り除いた文字列を返す。
	// 入力にHTMLタグが含まれる場合は空文字列とErrMarkupを返す。
	// 本文は変更しないため、Cleanの結果に再度Cleanを適用しても同じ値になる。
	Clean(raw string) (string, error)
}

// textSanitizer はbluemondayのStrictPolicyでタグの有無を判定する実装。
// Policyはスレッドセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はStrictPolicyを通しても本文が変わらない場合だけ入力を受け付ける。
// デコードは比較にのみ使い、保存する値はデコードしない。
func (s *textSanitizer) Clean(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", nil
	}
	if decodedText(s.policy.Sanitize(text)) != decodedText(text) {
		return "", ErrMarkup
	}
	return text, nil
}

// newlineReplacer はHTMLトークナイザと同じ規則で改行とNULを正規化する。
var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\x00", "\ufffd")

// decodedText は文字参照をデコードし、トークナイザが行う正規化を両辺に揃える。
// StrictPolicyは本文をエスケープし直すため、そのままでは入力と比較できない。
func decodedText(s string) string {
	return newlineReplacer.Replace(html.UnescapeString(s))
}
