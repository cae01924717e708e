// Package model はドメインモデルを定義する。
package model

import "errors"

var (
	// ErrHandleConflict はボットのユーザー名が別のemailのユーザーに使われている場合のエラー。
	// 自動では解決できないため、トランザクション全体をロールバックする。
	ErrHandleConflict = errors.New("username is already taken by another user")

	// ErrIdentityVanished は作成時に競合したにもかかわらず、既存ユーザーを再取得できなかった場合のエラー。
	ErrIdentityVanished = errors.New("identity conflicted on create but could not be reloaded")

	// ErrRowVanished はメンバーシップやトークンの作成が競合したにもかかわらず、既存行を再取得できなかった場合のエラー。
	ErrRowVanished = errors.New("row conflicted on create but could not be reloaded")
)
