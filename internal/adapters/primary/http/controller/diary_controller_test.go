package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/dto"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/middleware"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/core/service/diary"
	"github.com/moltnet/moltnet/internal/core/service/sharing"
)

type fixedAuthValidator struct{ ac *entity.AuthContext }

func (f fixedAuthValidator) Validate(context.Context, string) (*entity.AuthContext, error) {
	return f.ac, nil
}

type diaryAgentRepo struct {
	mu           sync.Mutex
	byIdentity   map[string]*entity.Agent
	byFingerprint map[string]*entity.Agent
}

func newDiaryAgentRepo(agents ...*entity.Agent) *diaryAgentRepo {
	r := &diaryAgentRepo{byIdentity: map[string]*entity.Agent{}, byFingerprint: map[string]*entity.Agent{}}
	for _, a := range agents {
		r.byIdentity[a.IdentityID] = a
		r.byFingerprint[a.Fingerprint] = a
	}
	return r
}

func (r *diaryAgentRepo) FindByID(context.Context, string) (*entity.Agent, error) {
	return nil, entity.ErrAgentNotFound
}
func (r *diaryAgentRepo) FindByFingerprint(_ context.Context, fp string) (*entity.Agent, error) {
	a, ok := r.byFingerprint[fp]
	if !ok {
		return nil, entity.ErrAgentNotFound
	}
	return a, nil
}
func (r *diaryAgentRepo) FindByIdentityID(_ context.Context, identityID string) (*entity.Agent, error) {
	a, ok := r.byIdentity[identityID]
	if !ok {
		return nil, entity.ErrAgentNotFound
	}
	return a, nil
}
func (r *diaryAgentRepo) FindByPublicKey(context.Context, string) (*entity.Agent, error) {
	return nil, entity.ErrAgentNotFound
}
func (r *diaryAgentRepo) Upsert(_ context.Context, _ port.Tx, a *entity.Agent) (*entity.Agent, error) {
	return a, nil
}
func (r *diaryAgentRepo) Delete(context.Context, string) error { return nil }

type diaryFakeTx struct{}

func (diaryFakeTx) Unwrap() any { return nil }

type diaryFakeTxRunner struct{}

func (diaryFakeTxRunner) RunSerializable(ctx context.Context, fn func(context.Context, port.Tx) error) error {
	return fn(ctx, diaryFakeTx{})
}
func (diaryFakeTxRunner) RunReadCommitted(ctx context.Context, fn func(context.Context, port.Tx) error) error {
	return fn(ctx, diaryFakeTx{})
}

type diaryFakeDiaryRepo struct {
	mu      sync.Mutex
	diaries map[string]*entity.Diary
}

func newDiaryFakeDiaryRepo() *diaryFakeDiaryRepo {
	return &diaryFakeDiaryRepo{diaries: make(map[string]*entity.Diary)}
}
func (r *diaryFakeDiaryRepo) Create(_ context.Context, _ port.Tx, d *entity.Diary) (*entity.Diary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diaries[d.ID] = d
	return d, nil
}
func (r *diaryFakeDiaryRepo) FindByID(_ context.Context, id string) (*entity.Diary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.diaries[id]
	if !ok {
		return nil, entity.ErrDiaryNotFound
	}
	return d, nil
}
func (r *diaryFakeDiaryRepo) Update(_ context.Context, d *entity.Diary) (*entity.Diary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diaries[d.ID] = d
	return d, nil
}
func (r *diaryFakeDiaryRepo) Delete(_ context.Context, _ port.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.diaries, id)
	return nil
}
func (r *diaryFakeDiaryRepo) ListByOwner(_ context.Context, ownerID string) ([]*entity.Diary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Diary
	for _, d := range r.diaries {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

type diaryFakeEntryRepo struct {
	mu      sync.Mutex
	entries map[string]*entity.DiaryEntry
}

func newDiaryFakeEntryRepo() *diaryFakeEntryRepo {
	return &diaryFakeEntryRepo{entries: make(map[string]*entity.DiaryEntry)}
}
func (r *diaryFakeEntryRepo) Insert(_ context.Context, _ port.Tx, e *entity.DiaryEntry) (*entity.DiaryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
	return e, nil
}
func (r *diaryFakeEntryRepo) FindByID(_ context.Context, id string) (*entity.DiaryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, entity.ErrDiaryEntryNotFound
	}
	return e, nil
}
func (r *diaryFakeEntryRepo) Update(_ context.Context, e *entity.DiaryEntry) (*entity.DiaryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
	return e, nil
}
func (r *diaryFakeEntryRepo) Delete(_ context.Context, _ port.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}
func (r *diaryFakeEntryRepo) List(_ context.Context, p port.ListEntriesParams) ([]*entity.DiaryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.DiaryEntry
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}
func (r *diaryFakeEntryRepo) Search(context.Context, port.SearchEntriesParams) ([]*entity.DiaryEntry, error) {
	return nil, nil
}
func (r *diaryFakeEntryRepo) ListPublic(context.Context, port.PublicFeedParams) ([]*entity.DiaryEntry, *port.PublicFeedCursor, error) {
	return nil, nil, nil
}
func (r *diaryFakeEntryRepo) FindPublicByID(context.Context, string) (*entity.DiaryEntry, error) {
	return nil, entity.ErrDiaryEntryNotFound
}
func (r *diaryFakeEntryRepo) SearchPublic(context.Context, port.PublicSearchParams) ([]*entity.DiaryEntry, error) {
	return nil, nil
}
func (r *diaryFakeEntryRepo) Reflect(context.Context, port.ReflectParams) ([]*entity.DiaryEntry, error) {
	return nil, nil
}
func (r *diaryFakeEntryRepo) TouchAccess(context.Context, string) error { return nil }

type diaryFakeRelationshipEngine struct {
	port.RelationshipEngine
}

func (diaryFakeRelationshipEngine) CanWriteDiary(context.Context, string, string) (bool, error) {
	return true, nil
}
func (diaryFakeRelationshipEngine) CanEditEntry(context.Context, string, string) (bool, error) {
	return true, nil
}
func (diaryFakeRelationshipEngine) CanDeleteEntry(context.Context, string, string) (bool, error) {
	return true, nil
}
func (diaryFakeRelationshipEngine) CanManageDiary(context.Context, string, string) (bool, error) {
	return true, nil
}

type diaryFakeEmbedding struct{}

func (diaryFakeEmbedding) EmbedPassage(context.Context, string) ([]float32, error) {
	return make([]float32, entity.EmbeddingDimensions), nil
}
func (diaryFakeEmbedding) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, entity.EmbeddingDimensions), nil
}

type diaryFakeInjectionScanner struct{}

func (diaryFakeInjectionScanner) Score(context.Context, string) (float64, error) { return 0, nil }

type diaryFakeWorkflowRuntime struct{}

func (diaryFakeWorkflowRuntime) RunSync(context.Context, string, any, any) (*port.WorkflowRun, error) {
	return &port.WorkflowRun{Status: port.WorkflowStatusCompleted}, nil
}
func (diaryFakeWorkflowRuntime) EnqueueAsync(_ context.Context, workflowType string, _ any) (*port.WorkflowRun, error) {
	return &port.WorkflowRun{ID: "run-1", Type: workflowType, Status: port.WorkflowStatusRunning}, nil
}
func (diaryFakeWorkflowRuntime) Get(context.Context, string) (*port.WorkflowRun, error) {
	return &port.WorkflowRun{Status: port.WorkflowStatusCompleted}, nil
}

type diaryFakeShareRepo struct {
	mu     sync.Mutex
	shares map[string]*entity.DiaryShare
}

func newDiaryFakeShareRepo() *diaryFakeShareRepo {
	return &diaryFakeShareRepo{shares: make(map[string]*entity.DiaryShare)}
}
func (r *diaryFakeShareRepo) Insert(_ context.Context, s *entity.DiaryShare) (*entity.DiaryShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shares[s.ID] = s
	return s, nil
}
func (r *diaryFakeShareRepo) FindByID(_ context.Context, id string) (*entity.DiaryShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[id]
	if !ok {
		return nil, entity.ErrDiaryShareNotFound
	}
	return s, nil
}
func (r *diaryFakeShareRepo) FindByDiaryAndAgent(_ context.Context, diaryID, agentID string) (*entity.DiaryShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shares {
		if s.DiaryID == diaryID && s.SharedWith == agentID {
			return s, nil
		}
	}
	return nil, entity.ErrDiaryShareNotFound
}
func (r *diaryFakeShareRepo) UpdateStatus(_ context.Context, id string, status entity.ShareStatus, _ bool) (*entity.DiaryShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[id]
	if !ok {
		return nil, entity.ErrDiaryShareNotFound
	}
	s.Status = status
	return s, nil
}
func (r *diaryFakeShareRepo) Reopen(_ context.Context, id string, role entity.ShareRole) (*entity.DiaryShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.shares[id]
	s.Status = entity.ShareStatusPending
	s.Role = role
	return s, nil
}
func (r *diaryFakeShareRepo) ListPendingForAgent(_ context.Context, agentID string) ([]*entity.DiaryShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.DiaryShare
	for _, s := range r.shares {
		if s.SharedWith == agentID && s.Status == entity.ShareStatusPending {
			out = append(out, s)
		}
	}
	return out, nil
}

type diaryTestFixture struct {
	router      *gin.Engine
	otherRouter *gin.Engine
	agents      *diaryAgentRepo
}

// newDiaryTestFixture wires one diary/sharing service stack shared by two
// routers: router authenticates as owner, otherRouter as other (when given),
// so ownership checks can be exercised across the same in-memory stores.
func newDiaryTestFixture(owner, other *entity.Agent) *diaryTestFixture {
	agents := newDiaryAgentRepo(owner, other)
	diaries := newDiaryFakeDiaryRepo()
	entries := newDiaryFakeEntryRepo()
	relationships := diaryFakeRelationshipEngine{}
	diarySvc := diary.NewService(diaries, entries, relationships, diaryFakeEmbedding{}, diaryFakeInjectionScanner{}, diaryFakeWorkflowRuntime{}, diaryFakeTxRunner{})
	sharingSvc := sharing.NewService(newDiaryFakeShareRepo(), agents, relationships, diaryFakeWorkflowRuntime{})

	r := gin.New()
	api := r.Group("/")
	authMW := middleware.Auth(fixedAuthValidator{ac: &entity.AuthContext{IdentityID: owner.IdentityID}})
	NewDiaryController(diarySvc, sharingSvc, agents).RegisterRoutes(api, authMW)

	fx := &diaryTestFixture{router: r, agents: agents}
	if other != nil {
		ro := gin.New()
		apiO := ro.Group("/")
		authMWOther := middleware.Auth(fixedAuthValidator{ac: &entity.AuthContext{IdentityID: other.IdentityID}})
		NewDiaryController(diarySvc, sharingSvc, agents).RegisterRoutes(apiO, authMWOther)
		fx.otherRouter = ro
	}
	return fx
}

func authedRequest(method, path string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer token")
	return req
}

func TestDiaryController_CreateDiary_Succeeds(t *testing.T) {
	owner := &entity.Agent{ID: "agent-1", IdentityID: "identity-1"}
	fx := newDiaryTestFixture(owner, nil)

	body, _ := json.Marshal(dto.CreateDiaryRequest{Name: "journal", Visibility: entity.VisibilityPrivate})
	req := authedRequest(http.MethodPost, "/diaries", body)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.DiaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "journal", resp.Name)
}

func TestDiaryController_CreateDiary_UnauthenticatedIsRejected(t *testing.T) {
	owner := &entity.Agent{ID: "agent-1", IdentityID: "identity-1"}
	fx := newDiaryTestFixture(owner, nil)

	body, _ := json.Marshal(dto.CreateDiaryRequest{Name: "journal", Visibility: entity.VisibilityPrivate})
	req := httptest.NewRequest(http.MethodPost, "/diaries", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDiaryController_UpdateDiary_ForbiddenWhenNotOwner(t *testing.T) {
	owner := &entity.Agent{ID: "agent-1", IdentityID: "identity-1"}
	other := &entity.Agent{ID: "agent-2", IdentityID: "identity-2"}
	fx := newDiaryTestFixture(owner, other)

	createBody, _ := json.Marshal(dto.CreateDiaryRequest{Name: "journal", Visibility: entity.VisibilityPrivate})
	createReq := authedRequest(http.MethodPost, "/diaries", createBody)
	createRec := httptest.NewRecorder()
	fx.router.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)
	var created dto.DiaryResponse
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	newName := "renamed"
	updateBody, _ := json.Marshal(dto.UpdateDiaryRequest{Name: &newName})
	updateReq := authedRequest(http.MethodPatch, "/diaries/"+created.ID, updateBody)
	updateRec := httptest.NewRecorder()
	fx.otherRouter.ServeHTTP(updateRec, updateReq)

	assert.Equal(t, http.StatusForbidden, updateRec.Code)
}

func TestDiaryController_CreateEntry_Succeeds(t *testing.T) {
	owner := &entity.Agent{ID: "agent-1", IdentityID: "identity-1"}
	fx := newDiaryTestFixture(owner, nil)

	body, _ := json.Marshal(dto.CreateEntryRequest{DiaryID: "diary-1", Content: "hello"})
	req := authedRequest(http.MethodPost, "/diary/entries", body)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestDiaryController_ShareCreatesPendingInvitation(t *testing.T) {
	owner := &entity.Agent{ID: "agent-1", IdentityID: "identity-1", Fingerprint: "OWNER-0000-0000-0001"}
	target := &entity.Agent{ID: "agent-2", IdentityID: "identity-2", Fingerprint: "TARGET-000-0000-0002"}
	fx := newDiaryTestFixture(owner, target)

	shareBody, _ := json.Marshal(dto.ShareDiaryRequest{TargetFingerprint: target.Fingerprint, Role: entity.ShareRoleReader})
	shareReq := authedRequest(http.MethodPost, "/diaries/diary-1/share", shareBody)
	shareRec := httptest.NewRecorder()
	fx.router.ServeHTTP(shareRec, shareReq)

	require.Equal(t, http.StatusCreated, shareRec.Code)
	var share dto.DiaryShareResponse
	require.NoError(t, json.Unmarshal(shareRec.Body.Bytes(), &share))
	assert.Equal(t, entity.ShareStatusPending, share.Status)
}
