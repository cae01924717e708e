package model

import (
	"strings"

	"github.com/google/uuid"
)

// TokenPrefix はAPIトークンの接頭辞。
const TokenPrefix = "plane_api_"

// UserType はAPIトークンの発行対象の種別を表す。
type UserType int

const (
	// UserTypeHuman は人間のユーザー向けトークン。
	UserTypeHuman UserType = 0
	// UserTypeBot はボット向けトークン。
	UserTypeBot UserType = 1
)

// Credential はワークスペース単位で発行されるAPIトークン（api_tokensテーブル）を表す。
// (user_id, workspace_id, label) の組で一意。WorkspaceIDが空の場合はワークスペースに紐づかない。
// Tokenは一度生成したら再生成しない。
type Credential struct {
	ID          string
	UserID      string
	WorkspaceID string
	Label       string
	Token       string
	Description string
	UserType    UserType
	IsActive    bool
}

// CredentialLabel はユーザー名とワークスペースのslugから決定的なラベルを生成する。
// slugが空の場合はワークスペースに紐づかないフォールバック用のラベルを返す。
func CredentialLabel(username, workspaceSlug string) string {
	if workspaceSlug == "" {
		return username
	}
	return username + "-" + workspaceSlug
}

// NewToken は新しいAPIトークン文字列を生成する。
func NewToken() string {
	return TokenPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}
