// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は取り込んだ文字列からHTMLを取り除き、
// スライドに表示できるプレーンテキストに変換する。
// 外部フィードや貼り付けたテキストに含まれるタグや属性はすべて除去する。
package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はスライド本文のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize はHTMLを含みうる文字列をプレーンテキストに変換する。
	// 段落や改行タグは改行として残し、それ以外のタグは中身のテキストだけを残す。
	// script, styleの中身は捨てる。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので共有する。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

var (
	// lineBreakTags は改行として扱うタグ。
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>|</p\s*>|</li\s*>|</div\s*>|</h[1-6]\s*>|</blockquote\s*>`)
	// trailingSpaces は行末の空白。
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
	// excessBlankLines は3行以上続く改行。スライド区切りの空行1つに詰める。
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
)

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// タグを一切許可しないStrictPolicyを使う。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLを含みうる文字列をプレーンテキストに変換する。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = lineBreakTags.ReplaceAllString(text, "\n")
	text = s.policy.Sanitize(text)
	// StrictPolicyはエンティティをエスケープして返すため、表示用に戻す
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = trailingSpaces.ReplaceAllString(text, "\n")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
