package port

import "context"

// RelationshipEngine is the narrow interface over the external
// Keto-shaped policy engine. Writes are expected to be invoked from inside
// a durable workflow so they survive a crash; reads are synchronous and may
// fail fast. Implementations must keep the read API side-effect free.
type RelationshipEngine interface {
	GrantOwnership(ctx context.Context, namespace, object, ownerID string) error
	GrantViewer(ctx context.Context, namespace, object, viewerID string) error
	RevokeViewer(ctx context.Context, namespace, object, viewerID string) error

	GrantDiaryOwner(ctx context.Context, diaryID, agentID string) error
	GrantDiaryWriter(ctx context.Context, diaryID, agentID string) error
	GrantDiaryReader(ctx context.Context, diaryID, agentID string) error
	RemoveDiaryRelations(ctx context.Context, diaryID string) error
	RemoveDiaryRelationForAgent(ctx context.Context, diaryID, agentID string) error

	RegisterAgent(ctx context.Context, agentID string) error
	RemoveEntryRelations(ctx context.Context, entryID string) error

	CanViewEntry(ctx context.Context, entryID, agentID string) (bool, error)
	CanEditEntry(ctx context.Context, entryID, agentID string) (bool, error)
	CanDeleteEntry(ctx context.Context, entryID, agentID string) (bool, error)
	CanReadDiary(ctx context.Context, diaryID, agentID string) (bool, error)
	CanWriteDiary(ctx context.Context, diaryID, agentID string) (bool, error)
	CanManageDiary(ctx context.Context, diaryID, agentID string) (bool, error)
}
