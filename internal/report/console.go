// Package report は調整イベントと結果を人間向けのテキストとして出力する。
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/AdeChrysler/szen-bi/internal/event"
	"github.com/AdeChrysler/szen-bi/internal/provision"
)

const ruleWidth = 60

// Console はイベントを逐次テキストで出力するSink。
//
//	+ 作成した
//	~ 有効化した
//	= 既に望ましい状態だった
type Console struct {
	w     io.Writer
	title string
}

// NewConsole はwへ出力するConsoleを生成する。titleはヘッダーに表示する。
func NewConsole(w io.Writer, title string) *Console {
	return &Console{w: w, title: title}
}

// Header は実行開始時の見出しを出力する。
func (c *Console) Header() {
	c.printf("\n%s\n", rule())
	c.printf("  %s -- Bot User Provisioning\n", c.title)
	c.printf("%s\n", rule())
}

// Emit はイベントを1行（ステップ開始は見出し）として出力する。
func (c *Console) Emit(_ context.Context, e event.Event) {
	if e.Kind == event.KindStepStarted {
		c.printf("\n[%d/%d] %s\n", e.Step, event.StepCount, e.Step)
		return
	}
	if line := describe(e); line != "" {
		c.printf("  %s\n", line)
	}
}

// Summary は成功時の結果を出力する。トークンは環境変数の形式でも出力する。
func (c *Console) Summary(res *provision.Result) {
	c.printf("\n%s\n", rule())
	c.printf("  Provisioning complete!\n\n")
	c.printf("  Bot user id : %s\n", res.IdentityID)
	c.printf("  Bot email   : %s\n", res.Email)
	c.printf("  API token   : %s\n\n", res.Token)
	c.printf("  Set this token in your orchestrator environment:\n")
	c.printf("    PLANE_API_TOKEN=%s\n", res.Token)
	c.printf("%s\n\n", rule())
}

// Failure は失敗時のメッセージを出力する。
func (c *Console) Failure(err error) {
	c.printf("\nERROR: Provisioning failed.  Details below.\n%v\n", err)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func rule() string {
	return strings.Repeat("=", ruleWidth)
}

func describe(e event.Event) string {
	switch e.Entity {
	case event.EntityIdentity:
		switch e.Kind {
		case event.KindCreated:
			return fmt.Sprintf("Created new bot user: %s (id=%s)", e.Name, e.ID)
		case event.KindNormalized:
			return fmt.Sprintf("Found existing user: %s (id=%s)\n  Updated user fields to match expected configuration.", e.Name, e.ID)
		default:
			return fmt.Sprintf("Found existing user: %s (id=%s)", e.Name, e.ID)
		}

	case event.EntityWorkspaceMember:
		switch e.Kind {
		case event.KindCreated:
			return fmt.Sprintf("+ Added to workspace '%s' (slug=%s)", e.WorkspaceName, e.WorkspaceSlug)
		case event.KindReactivated:
			return fmt.Sprintf("~ Reactivated membership in workspace '%s'", e.WorkspaceName)
		default:
			return fmt.Sprintf("= Already a member of workspace '%s'", e.WorkspaceName)
		}

	case event.EntityProjectMember:
		switch e.Kind {
		case event.KindCreated:
			return fmt.Sprintf("+ Added to project '%s' in '%s'", e.Name, e.WorkspaceName)
		case event.KindReactivated:
			return fmt.Sprintf("~ Reactivated membership in project '%s'", e.Name)
		default:
			return fmt.Sprintf("= Already a member of project '%s'", e.Name)
		}

	case event.EntityCredential:
		var line string
		switch {
		case e.Fallback && e.Kind == event.KindCreated:
			line = "+ Created fallback API token (no workspace)"
		case e.Fallback:
			line = "= Fallback API token already exists (no workspace)"
		case e.Kind == event.KindCreated:
			line = fmt.Sprintf("+ Created API token for workspace '%s'", e.WorkspaceName)
		default:
			line = fmt.Sprintf("= API token already exists for workspace '%s'", e.WorkspaceName)
		}
		if e.Inactive {
			line += " (inactive)"
		}
		return line
	}

	switch e.Kind {
	case event.KindNoWorkspaces:
		return "WARNING: No workspaces found in the database."
	case event.KindNoProjects:
		return fmt.Sprintf("(no projects in workspace '%s')", e.WorkspaceName)
	}
	return ""
}

// compile-time interface check
var _ event.Sink = (*Console)(nil)
