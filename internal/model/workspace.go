package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Role はワークスペース/プロジェクトにおけるメンバーの権限を表す。
type Role int

const (
	// RoleGuest はゲスト権限。
	RoleGuest Role = 5
	// RoleMember は通常メンバー権限。
	RoleMember Role = 15
	// RoleAdmin は管理者権限。
	RoleAdmin Role = 20
)

// String はロールの名前を返す。
func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return strconv.Itoa(int(r))
	}
}

// ParseRole はロール名または数値からRoleを解析する。
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "guest":
		return RoleGuest, nil
	case "member":
		return RoleMember, nil
	case "admin":
		return RoleAdmin, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("unknown role: %q", s)
	}
	r := Role(n)
	if r != RoleGuest && r != RoleMember && r != RoleAdmin {
		return 0, fmt.Errorf("unknown role: %d", n)
	}
	return r, nil
}

// Workspace はテナントを表す。このサービスからは読み取り専用。
type Workspace struct {
	ID   string
	Name string
	Slug string
}

// WorkspaceMember はユーザーとワークスペースの所属関係を表す。
// (workspace_id, member_id) の組で一意。
type WorkspaceMember struct {
	ID          string
	WorkspaceID string
	MemberID    string
	Role        Role
	IsActive    bool
}

// Project はワークスペースに属するプロジェクトを表す。読み取り専用。
type Project struct {
	ID          string
	WorkspaceID string
	Name        string
	Identifier  string
}

// ProjectMember はユーザーとプロジェクトの所属関係を表す。
// 絞り込み用に所属ワークスペースも保持する。(project_id, member_id) の組で一意。
type ProjectMember struct {
	ID          string
	ProjectID   string
	WorkspaceID string
	MemberID    string
	Role        Role
	IsActive    bool
}
