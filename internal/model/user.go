// Package model はドメインモデルを定義する。
package model

// UnusablePassword はパスワードログインを許可しないユーザーに設定する値。
// ボットはAPIトークンでのみ認証する。
const UnusablePassword = "!"

// Identity はボットとして管理されるユーザー（usersテーブル）を表す。
// emailで一意に識別される。
type Identity struct {
	ID          string
	Email       string
	Username    string
	DisplayName string
	Password    string
	IsBot       bool
	IsActive    bool
}

// IdentitySpec はボットユーザーの正規値を表す。
// 管理対象のフィールドは実行のたびにこの値へ揃えられる。
type IdentitySpec struct {
	Email       string
	Username    string
	DisplayName string
}

// Matches は管理対象フィールドがすべて正規値と一致しているかを返す。
func (i *Identity) Matches(spec IdentitySpec) bool {
	return i.Username == spec.Username &&
		i.DisplayName == spec.DisplayName &&
		i.IsBot &&
		i.IsActive
}

// Normalize は管理対象フィールドを正規値で上書きする。
func (i *Identity) Normalize(spec IdentitySpec) {
	i.Username = spec.Username
	i.DisplayName = spec.DisplayName
	i.IsBot = true
	i.IsActive = true
}
