package signing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/crypto"
)

type fakeAgentRepo struct {
	agents map[string]*entity.Agent
}

func (r *fakeAgentRepo) FindByID(_ context.Context, id string) (*entity.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, entity.ErrAgentNotFound
	}
	return a, nil
}

func (r *fakeAgentRepo) FindByFingerprint(context.Context, string) (*entity.Agent, error) {
	return nil, entity.ErrAgentNotFound
}
func (r *fakeAgentRepo) FindByIdentityID(context.Context, string) (*entity.Agent, error) {
	return nil, entity.ErrAgentNotFound
}
func (r *fakeAgentRepo) FindByPublicKey(context.Context, string) (*entity.Agent, error) {
	return nil, entity.ErrAgentNotFound
}
func (r *fakeAgentRepo) Upsert(_ context.Context, _ port.Tx, a *entity.Agent) (*entity.Agent, error) {
	r.agents[a.ID] = a
	return a, nil
}
func (r *fakeAgentRepo) Delete(_ context.Context, id string) error {
	delete(r.agents, id)
	return nil
}

type fakeSigningRepo struct {
	mu       sync.Mutex
	requests map[string]*entity.SigningRequest
	seq      int
}

func newFakeSigningRepo() *fakeSigningRepo {
	return &fakeSigningRepo{requests: make(map[string]*entity.SigningRequest)}
}

func (r *fakeSigningRepo) Create(_ context.Context, p port.CreateSigningRequestParams) (*entity.SigningRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	expires := time.Now().UTC().Add(entity.DefaultSigningRequestTTL)
	if p.ExpiresAt != nil {
		expires = *p.ExpiresAt
	}
	req := &entity.SigningRequest{
		ID:        "req-" + string(rune('0'+r.seq)),
		AgentID:   p.AgentID,
		Message:   p.Message,
		Nonce:     "nonce-" + string(rune('0'+r.seq)),
		Status:    entity.SigningRequestPending,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expires,
	}
	r.requests[req.ID] = req
	return req, nil
}

func (r *fakeSigningRepo) FindByID(_ context.Context, id string) (*entity.SigningRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, entity.ErrSigningRequestNotFound
	}
	return req, nil
}

func (r *fakeSigningRepo) FindBySignature(_ context.Context, signature string) (*entity.SigningRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.Signature != nil && *req.Signature == signature {
			return req, nil
		}
	}
	return nil, entity.ErrSigningRequestNotFound
}

func (r *fakeSigningRepo) UpdateStatus(_ context.Context, id string, p port.UpdateSigningRequestStatusParams) (*entity.SigningRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, entity.ErrSigningRequestNotFound
	}
	req.Status = p.Status
	req.Signature = p.Signature
	req.Valid = p.Valid
	req.CompletedAt = p.CompletedAt
	return req, nil
}

func (r *fakeSigningRepo) CountByAgent(_ context.Context, agentID string, status entity.SigningRequestStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, req := range r.requests {
		if req.AgentID == agentID && req.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeSigningRepo) List(_ context.Context, p port.ListSigningRequestsParams) ([]*entity.SigningRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.SigningRequest
	for _, req := range r.requests {
		if req.AgentID == p.AgentID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeSigningRepo) ExpirePastDue(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if req.Status == entity.SigningRequestPending && !now.Before(req.ExpiresAt) {
			req.Status = entity.SigningRequestExpired
			n++
		}
	}
	return n, nil
}

type fakeWorkflowRuntime struct {
	enqueued []string
}

func (f *fakeWorkflowRuntime) RunSync(context.Context, string, any, any) (*port.WorkflowRun, error) {
	return &port.WorkflowRun{Status: port.WorkflowStatusCompleted}, nil
}

func (f *fakeWorkflowRuntime) EnqueueAsync(_ context.Context, workflowType string, _ any) (*port.WorkflowRun, error) {
	f.enqueued = append(f.enqueued, workflowType)
	return &port.WorkflowRun{ID: "run-1", Type: workflowType, Status: port.WorkflowStatusRunning}, nil
}

func (f *fakeWorkflowRuntime) Get(context.Context, string) (*port.WorkflowRun, error) {
	return &port.WorkflowRun{Status: port.WorkflowStatusCompleted}, nil
}

func newTestAgent(t *testing.T, id string) (*entity.Agent, func(msg, nonce string) string) {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	agent := &entity.Agent{ID: id, PublicKey: kp.Public}
	sign := func(msg, nonce string) string {
		return crypto.SignWithNonce(msg, nonce, kp.Private)
	}
	return agent, sign
}

func TestService_Create_EnqueuesSigningWaitWorkflow(t *testing.T) {
	repo := newFakeSigningRepo()
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{}}
	workflow := &fakeWorkflowRuntime{}
	svc := NewService(repo, agents, workflow)

	req, err := svc.Create(context.Background(), "agent-1", "hello")

	require.NoError(t, err)
	assert.Equal(t, entity.SigningRequestPending, req.Status)
	assert.Equal(t, []string{port.WorkflowSigningWait}, workflow.enqueued)
}

func TestService_Submit_ValidSignatureCompletesRequest(t *testing.T) {
	repo := newFakeSigningRepo()
	agent, sign := newTestAgent(t, "agent-1")
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{agent.ID: agent}}
	workflow := &fakeWorkflowRuntime{}
	svc := NewService(repo, agents, workflow)

	req, err := svc.Create(context.Background(), agent.ID, "hello")
	require.NoError(t, err)

	signature := sign(req.Message, req.Nonce)
	updated, err := svc.Submit(context.Background(), req.ID, agent.ID, signature)

	require.NoError(t, err)
	assert.Equal(t, entity.SigningRequestCompleted, updated.Status)
	require.NotNil(t, updated.Valid)
	assert.True(t, *updated.Valid)
}

func TestService_Submit_WrongOwnerIsNotFound(t *testing.T) {
	repo := newFakeSigningRepo()
	agent, _ := newTestAgent(t, "agent-1")
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{agent.ID: agent}}
	svc := NewService(repo, agents, &fakeWorkflowRuntime{})

	req, err := svc.Create(context.Background(), agent.ID, "hello")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), req.ID, "someone-else", "sig")
	assert.ErrorIs(t, err, entity.ErrSigningRequestNotFound)
}

func TestService_Submit_ExpiredRequestIsRejected(t *testing.T) {
	repo := newFakeSigningRepo()
	agent, sign := newTestAgent(t, "agent-1")
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{agent.ID: agent}}
	svc := NewService(repo, agents, &fakeWorkflowRuntime{})

	past := time.Now().UTC().Add(-time.Minute)
	req, err := repo.Create(context.Background(), port.CreateSigningRequestParams{
		AgentID: agent.ID, Message: "hello", ExpiresAt: &past,
	})
	require.NoError(t, err)

	signature := sign(req.Message, req.Nonce)
	_, err = svc.Submit(context.Background(), req.ID, agent.ID, signature)
	assert.ErrorIs(t, err, entity.ErrSigningRequestExpired)
}

func TestService_Submit_AlreadyCompletedIsRejected(t *testing.T) {
	repo := newFakeSigningRepo()
	agent, sign := newTestAgent(t, "agent-1")
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{agent.ID: agent}}
	svc := NewService(repo, agents, &fakeWorkflowRuntime{})

	req, err := svc.Create(context.Background(), agent.ID, "hello")
	require.NoError(t, err)
	signature := sign(req.Message, req.Nonce)

	_, err = svc.Submit(context.Background(), req.ID, agent.ID, signature)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), req.ID, agent.ID, signature)
	assert.ErrorIs(t, err, entity.ErrSigningRequestAlreadyCompleted)
}

func TestService_VerifyBySignature_ValidSignatureReturnsTrue(t *testing.T) {
	repo := newFakeSigningRepo()
	agent, sign := newTestAgent(t, "agent-1")
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{agent.ID: agent}}
	svc := NewService(repo, agents, &fakeWorkflowRuntime{})

	req, err := svc.Create(context.Background(), agent.ID, "hello")
	require.NoError(t, err)
	signature := sign(req.Message, req.Nonce)

	_, err = svc.Submit(context.Background(), req.ID, agent.ID, signature)
	require.NoError(t, err)

	valid, err := svc.VerifyBySignature(context.Background(), signature)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestService_Get_WrongOwnerIsNotFound(t *testing.T) {
	repo := newFakeSigningRepo()
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{}}
	svc := NewService(repo, agents, &fakeWorkflowRuntime{})

	req, err := svc.Create(context.Background(), "agent-1", "hello")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), req.ID, "agent-2")
	assert.ErrorIs(t, err, entity.ErrSigningRequestNotFound)
}
