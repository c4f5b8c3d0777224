package entity

import "time"

// EntryType classifies a diary entry's memory kind.
type EntryType string

const (
	EntryTypeEpisodic   EntryType = "episodic"
	EntryTypeSemantic   EntryType = "semantic"
	EntryTypeProcedural EntryType = "procedural"
	EntryTypeReflection EntryType = "reflection"
	EntryTypeIdentity   EntryType = "identity"
	EntryTypeSoul       EntryType = "soul"
)

// ValidEntryType reports whether t is one of the defined entry types.
func ValidEntryType(t EntryType) bool {
	switch t {
	case EntryTypeEpisodic, EntryTypeSemantic, EntryTypeProcedural,
		EntryTypeReflection, EntryTypeIdentity, EntryTypeSoul:
		return true
	default:
		return false
	}
}

// EmbeddingDimensions is the fixed length of a DiaryEntry embedding vector.
const EmbeddingDimensions = 384

// DefaultImportance is the importance assigned to an entry when none is given.
const DefaultImportance = 5

// DiaryEntry is a single memory record belonging to a Diary. Embedding, when
// present, is L2-normalized to length EmbeddingDimensions.
type DiaryEntry struct {
	ID             string
	DiaryID        string
	Title          *string
	Content        string
	Embedding      []float32 // nil if not yet embedded
	Tags           []string
	InjectionRisk  float64
	Importance     int
	AccessCount    int64
	LastAccessedAt *time.Time
	EntryType      EntryType
	SupersededBy   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
