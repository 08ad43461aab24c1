package domain

import (
	"errors"
	"fmt"
)

// RecoveryAction は失敗の種類ごとに定義された回復手段です。
type RecoveryAction string

const (
	RecoveryNone           RecoveryAction = ""
	RecoveryFixInput       RecoveryAction = "fix_input"
	RecoveryRetrySynthesis RecoveryAction = "retry_synthesis"
	RecoveryRetryItem      RecoveryAction = "retry_item"
	RecoveryRetryExport    RecoveryAction = "retry_export"
)

// Recoverable は回復手段を持つエラーの契約なのだ。
type Recoverable interface {
	error
	Recovery() RecoveryAction
}

// ValidationError は AI 呼び出し前に弾かれる入力不備です。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("入力が不正です (%s): %s", e.Field, e.Reason)
}

func (e *ValidationError) Recovery() RecoveryAction { return RecoveryFixInput }

// ProviderErrorKind はプロバイダ障害の分類です。
type ProviderErrorKind string

const (
	ProviderAuth       ProviderErrorKind = "auth"
	ProviderQuota      ProviderErrorKind = "quota"
	ProviderBadRequest ProviderErrorKind = "bad_request"
	ProviderTimeout    ProviderErrorKind = "timeout"
	ProviderTransport  ProviderErrorKind = "transport"
	ProviderEmpty      ProviderErrorKind = "empty"
)

// ProviderError は補完プロバイダの通信・認証・クォータ障害なのだ。
// 1回のユーザー操作の中ではリトライしません。
type ProviderError struct {
	Kind ProviderErrorKind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("プロバイダ呼び出しに失敗しました (%s, %s)", e.Op, e.Kind)
	}
	return fmt.Sprintf("プロバイダ呼び出しに失敗しました (%s, %s): %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Recovery() RecoveryAction { return RecoveryRetryItem }

// MalformedResponseError はスキーマ・形状チェックに失敗した応答です。
type MalformedResponseError struct {
	Reason  string
	Excerpt string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	msg := "AIの応答形式が不正です: " + e.Reason
	if e.Excerpt != "" {
		msg += fmt.Sprintf(" (応答抜粋: %q)", e.Excerpt)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Recovery() RecoveryAction { return RecoveryRetryItem }

// RenderError はラスタ化・エクスポート処理の失敗なのだ。
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("画像処理に失敗しました (%s): %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Recovery() RecoveryAction { return RecoveryRetryExport }

// Failure は主フローの合成失敗を包み、回復手段を上書きします。
type Failure struct {
	Action RecoveryAction
	Err    error
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Recovery() RecoveryAction { return f.Action }

// RecoveryFor はエラーチェーンから最初に見つかった回復手段を返すのだ。
func RecoveryFor(err error) RecoveryAction {
	var r Recoverable
	if errors.As(err, &r) {
		return r.Recovery()
	}
	return RecoveryNone
}
