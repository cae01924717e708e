package provision

import (
	"context"
	"fmt"

	"github.com/AdeChrysler/szen-bi/internal/model"
	"github.com/AdeChrysler/szen-bi/internal/repository"
)

// memStore はスナップショットでトランザクションを再現するインメモリのStore。
// InTxのコールバックは状態の複製に対して実行され、成功した場合のみ置き換える。
type memStore struct {
	state *memState

	// credentialCreateErr が設定されている場合、トークン作成はこのエラーで失敗する
	credentialCreateErr error
	// beforeIdentityInsert はユーザー作成の直前に1度だけ呼ばれる（同時実行の再現用）
	beforeIdentityInsert func(s *memState)
}

type memState struct {
	identities  []*model.Identity
	workspaces  []*model.Workspace
	projects    []*model.Project
	wsMembers   []*model.WorkspaceMember
	projMembers []*model.ProjectMember
	credentials []*model.Credential

	seq    int
	writes int
}

func newMemStore() *memStore {
	return &memStore{state: &memState{}}
}

func (s *memState) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memState) clone() *memState {
	c := &memState{seq: s.seq, writes: s.writes}
	for _, v := range s.identities {
		cp := *v
		c.identities = append(c.identities, &cp)
	}
	for _, v := range s.workspaces {
		cp := *v
		c.workspaces = append(c.workspaces, &cp)
	}
	for _, v := range s.projects {
		cp := *v
		c.projects = append(c.projects, &cp)
	}
	for _, v := range s.wsMembers {
		cp := *v
		c.wsMembers = append(c.wsMembers, &cp)
	}
	for _, v := range s.projMembers {
		cp := *v
		c.projMembers = append(c.projMembers, &cp)
	}
	for _, v := range s.credentials {
		cp := *v
		c.credentials = append(c.credentials, &cp)
	}
	return c
}

func (m *memStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	work := m.state.clone()
	if err := fn(&memTx{store: m, s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memTx struct {
	store *memStore
	s     *memState
}

func (t *memTx) Identities() repository.IdentityRepository             { return memIdentities{t} }
func (t *memTx) Workspaces() repository.WorkspaceRepository             { return memWorkspaces{t} }
func (t *memTx) WorkspaceMembers() repository.WorkspaceMemberRepository { return memWorkspaceMembers{t} }
func (t *memTx) Projects() repository.ProjectRepository                 { return memProjects{t} }
func (t *memTx) ProjectMembers() repository.ProjectMemberRepository     { return memProjectMembers{t} }
func (t *memTx) Credentials() repository.CredentialRepository           { return memCredentials{t} }

type memIdentities struct{ tx *memTx }

func (r memIdentities) FindByEmail(_ context.Context, email string) (*model.Identity, error) {
	for _, v := range r.tx.s.identities {
		if v.Email == email {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memIdentities) FindOrCreate(ctx context.Context, identity *model.Identity) (*model.Identity, bool, error) {
	if hook := r.tx.store.beforeIdentityInsert; hook != nil {
		r.tx.store.beforeIdentityInsert = nil
		hook(r.tx.s)
	}
	if existing, _ := r.FindByEmail(ctx, identity.Email); existing != nil {
		return existing, false, nil
	}
	for _, v := range r.tx.s.identities {
		if v.Username == identity.Username {
			return nil, false, fmt.Errorf("failed to insert user: %w", model.ErrHandleConflict)
		}
	}
	cp := *identity
	cp.ID = r.tx.s.nextID("user")
	r.tx.s.identities = append(r.tx.s.identities, &cp)
	r.tx.s.writes++
	out := cp
	return &out, true, nil
}

func (r memIdentities) Update(_ context.Context, identity *model.Identity) error {
	for _, v := range r.tx.s.identities {
		if v.ID != identity.ID && v.Username == identity.Username {
			return fmt.Errorf("failed to update user: %w", model.ErrHandleConflict)
		}
	}
	for i, v := range r.tx.s.identities {
		if v.ID == identity.ID {
			cp := *identity
			r.tx.s.identities[i] = &cp
			r.tx.s.writes++
			return nil
		}
	}
	return fmt.Errorf("user not found: %s", identity.ID)
}

type memWorkspaces struct{ tx *memTx }

func (r memWorkspaces) List(context.Context) ([]*model.Workspace, error) {
	var out []*model.Workspace
	for _, v := range r.tx.s.workspaces {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

type memProjects struct{ tx *memTx }

func (r memProjects) ListByWorkspace(_ context.Context, workspaceID string) ([]*model.Project, error) {
	var out []*model.Project
	for _, v := range r.tx.s.projects {
		if v.WorkspaceID == workspaceID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memWorkspaceMembers struct{ tx *memTx }

func (r memWorkspaceMembers) FindOrCreate(_ context.Context, member *model.WorkspaceMember) (*model.WorkspaceMember, bool, error) {
	for _, v := range r.tx.s.wsMembers {
		if v.WorkspaceID == member.WorkspaceID && v.MemberID == member.MemberID {
			cp := *v
			return &cp, false, nil
		}
	}
	cp := *member
	cp.ID = r.tx.s.nextID("wm")
	r.tx.s.wsMembers = append(r.tx.s.wsMembers, &cp)
	r.tx.s.writes++
	out := cp
	return &out, true, nil
}

func (r memWorkspaceMembers) Activate(_ context.Context, id string) error {
	for _, v := range r.tx.s.wsMembers {
		if v.ID == id {
			v.IsActive = true
			r.tx.s.writes++
			return nil
		}
	}
	return fmt.Errorf("workspace member not found: %s", id)
}

type memProjectMembers struct{ tx *memTx }

func (r memProjectMembers) FindOrCreate(_ context.Context, member *model.ProjectMember) (*model.ProjectMember, bool, error) {
	for _, v := range r.tx.s.projMembers {
		if v.ProjectID == member.ProjectID && v.MemberID == member.MemberID {
			cp := *v
			return &cp, false, nil
		}
	}
	cp := *member
	cp.ID = r.tx.s.nextID("pm")
	r.tx.s.projMembers = append(r.tx.s.projMembers, &cp)
	r.tx.s.writes++
	out := cp
	return &out, true, nil
}

func (r memProjectMembers) Activate(_ context.Context, id string) error {
	for _, v := range r.tx.s.projMembers {
		if v.ID == id {
			v.IsActive = true
			r.tx.s.writes++
			return nil
		}
	}
	return fmt.Errorf("project member not found: %s", id)
}

type memCredentials struct{ tx *memTx }

func (r memCredentials) FindByLabel(_ context.Context, userID, workspaceID, label string) (*model.Credential, error) {
	for _, v := range r.tx.s.credentials {
		if v.UserID == userID && v.WorkspaceID == workspaceID && v.Label == label {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memCredentials) FindOrCreate(ctx context.Context, credential *model.Credential) (*model.Credential, bool, error) {
	if err := r.tx.store.credentialCreateErr; err != nil {
		return nil, false, err
	}
	if existing, _ := r.FindByLabel(ctx, credential.UserID, credential.WorkspaceID, credential.Label); existing != nil {
		return existing, false, nil
	}
	cp := *credential
	cp.ID = r.tx.s.nextID("tok")
	r.tx.s.credentials = append(r.tx.s.credentials, &cp)
	r.tx.s.writes++
	out := cp
	return &out, true, nil
}

// compile-time interface check
var (
	_ repository.Store = (*memStore)(nil)
	_ repository.Tx    = (*memTx)(nil)
)
