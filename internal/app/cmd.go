package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandProvision は調整処理を1回実行して結果を出力することを示す。
	CommandProvision Command = "provision"
	// CommandWorker は調整処理を定期実行するワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate は開発・テスト用のスキーマを適用することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandProvisionを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandProvision
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "provision":
		return CommandProvision
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandProvision
	}
}
