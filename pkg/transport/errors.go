package transport

import (
	"errors"
	"fmt"
)

// Kind は転送層で分類されたエラーの種別です。
type Kind string

const (
	// KindUnauthorized は認証失敗です。再試行しても成功しないため即時に確定します。
	KindUnauthorized Kind = "unauthorized"
	// KindRateLimited はレート制限です。再試行予算の範囲で指数バックオフ付きの再試行対象です。
	KindRateLimited Kind = "rate_limited"
	// KindRequestFailed は上記以外の非成功ステータスです。即時に確定します。
	KindRequestFailed Kind = "request_failed"
	// KindTransportFailure は応答自体が得られないネットワークレベルの失敗です。
	KindTransportFailure Kind = "transport_failure"
)

// Error は分類情報付きの転送層エラーです。
type Error struct {
	Kind    Kind
	Status  int    // HTTP ステータスコード（ネットワーク失敗時は 0）
	Message string // サーバー提供のメッセージがあればそれ、なければ汎用メッセージ
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf は err に含まれる転送層エラーの種別を返します。分類がなければ空文字です。
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsUnauthorized は err が認証失敗として分類されているかを返します。
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsRateLimited は err がレート制限として分類されているかを返します。
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }
