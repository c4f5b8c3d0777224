// Package keto implements port.RelationshipEngine against a Keto-shaped
// relationship/permission engine: typed Config, New, per-call context, JSON
// request and response structs over net/http.
package keto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/moltnet/moltnet/internal/core/port"
)

// Namespaces and relations used by MoltNet's Keto object graph.
const (
	namespaceAgent      = "Agent"
	namespaceDiary      = "Diary"
	namespaceDiaryEntry = "DiaryEntry"

	relationSelf   = "self"
	relationOwner  = "owner"
	relationWriter = "writer"
	relationReader = "reader"
	relationViewer = "viewer"

	permissionView   = "view"
	permissionEdit   = "edit"
	permissionDelete = "delete"
	permissionRead   = "read"
	permissionWrite  = "write"
	permissionManage = "manage"
)

// Adapter implements port.RelationshipEngine for a Keto-shaped engine.
type Adapter struct {
	config     *Config
	httpClient *http.Client
}

// New creates a keto Adapter.
func New(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type tuple struct {
	Namespace string `json:"namespace"`
	Object    string `json:"object"`
	Relation  string `json:"relation"`
	SubjectID string `json:"subject_id"`
}

func (a *Adapter) putTuple(ctx context.Context, namespace, object, relation, subjectID string) error {
	body, err := json.Marshal(tuple{Namespace: namespace, Object: object, Relation: relation, SubjectID: subjectID})
	if err != nil {
		return fmt.Errorf("marshaling tuple: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.config.WriteURL+"/relation-tuples", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building tuple write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return a.doNoContent(req)
}

func (a *Adapter) deleteTuples(ctx context.Context, filter tuple) error {
	q := url.Values{}
	if filter.Namespace != "" {
		q.Set("namespace", filter.Namespace)
	}
	if filter.Object != "" {
		q.Set("object", filter.Object)
	}
	if filter.Relation != "" {
		q.Set("relation", filter.Relation)
	}
	if filter.SubjectID != "" {
		q.Set("subject_id", filter.SubjectID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.config.WriteURL+"/relation-tuples?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building tuple delete request: %w", err)
	}

	return a.doNoContent(req)
}

func (a *Adapter) doNoContent(req *http.Request) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling relationship engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("relationship engine returned status %d", resp.StatusCode)
	}
	return nil
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (a *Adapter) check(ctx context.Context, namespace, object, relation, subjectID string) (bool, error) {
	q := url.Values{
		"namespace":  {namespace},
		"object":     {object},
		"relation":   {relation},
		"subject_id": {subjectID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.ReadURL+"/relation-tuples/check?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("building check request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling relationship engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("relationship engine check returned status %d", resp.StatusCode)
	}

	var result checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decoding check response: %w", err)
	}
	return result.Allowed, nil
}

func (a *Adapter) GrantOwnership(ctx context.Context, namespace, object, ownerID string) error {
	return a.putTuple(ctx, namespace, object, relationOwner, ownerID)
}

func (a *Adapter) GrantViewer(ctx context.Context, namespace, object, viewerID string) error {
	return a.putTuple(ctx, namespace, object, relationViewer, viewerID)
}

func (a *Adapter) RevokeViewer(ctx context.Context, namespace, object, viewerID string) error {
	return a.deleteTuples(ctx, tuple{Namespace: namespace, Object: object, Relation: relationViewer, SubjectID: viewerID})
}

func (a *Adapter) GrantDiaryOwner(ctx context.Context, diaryID, agentID string) error {
	return a.putTuple(ctx, namespaceDiary, diaryID, relationOwner, agentID)
}

func (a *Adapter) GrantDiaryWriter(ctx context.Context, diaryID, agentID string) error {
	return a.putTuple(ctx, namespaceDiary, diaryID, relationWriter, agentID)
}

func (a *Adapter) GrantDiaryReader(ctx context.Context, diaryID, agentID string) error {
	return a.putTuple(ctx, namespaceDiary, diaryID, relationReader, agentID)
}

func (a *Adapter) RemoveDiaryRelations(ctx context.Context, diaryID string) error {
	return a.deleteTuples(ctx, tuple{Namespace: namespaceDiary, Object: diaryID})
}

func (a *Adapter) RemoveDiaryRelationForAgent(ctx context.Context, diaryID, agentID string) error {
	return a.deleteTuples(ctx, tuple{Namespace: namespaceDiary, Object: diaryID, SubjectID: agentID})
}

func (a *Adapter) RegisterAgent(ctx context.Context, agentID string) error {
	return a.putTuple(ctx, namespaceAgent, agentID, relationSelf, agentID)
}

func (a *Adapter) RemoveEntryRelations(ctx context.Context, entryID string) error {
	return a.deleteTuples(ctx, tuple{Namespace: namespaceDiaryEntry, Object: entryID})
}

func (a *Adapter) CanViewEntry(ctx context.Context, entryID, agentID string) (bool, error) {
	return a.check(ctx, namespaceDiaryEntry, entryID, permissionView, agentID)
}

func (a *Adapter) CanEditEntry(ctx context.Context, entryID, agentID string) (bool, error) {
	return a.check(ctx, namespaceDiaryEntry, entryID, permissionEdit, agentID)
}

func (a *Adapter) CanDeleteEntry(ctx context.Context, entryID, agentID string) (bool, error) {
	return a.check(ctx, namespaceDiaryEntry, entryID, permissionDelete, agentID)
}

func (a *Adapter) CanReadDiary(ctx context.Context, diaryID, agentID string) (bool, error) {
	return a.check(ctx, namespaceDiary, diaryID, permissionRead, agentID)
}

func (a *Adapter) CanWriteDiary(ctx context.Context, diaryID, agentID string) (bool, error) {
	return a.check(ctx, namespaceDiary, diaryID, permissionWrite, agentID)
}

func (a *Adapter) CanManageDiary(ctx context.Context, diaryID, agentID string) (bool, error) {
	return a.check(ctx, namespaceDiary, diaryID, permissionManage, agentID)
}

var _ port.RelationshipEngine = (*Adapter)(nil)
