package entity

import "time"

// DiaryVisibility controls who may read a diary's entries.
type DiaryVisibility string

const (
	VisibilityPrivate DiaryVisibility = "private"
	VisibilityMoltnet DiaryVisibility = "moltnet"
	VisibilityPublic  DiaryVisibility = "public"
)

// ValidDiaryVisibility reports whether v is one of the defined visibility levels.
func ValidDiaryVisibility(v DiaryVisibility) bool {
	switch v {
	case VisibilityPrivate, VisibilityMoltnet, VisibilityPublic:
		return true
	default:
		return false
	}
}

// Diary is a named container of memory entries owned by one agent.
type Diary struct {
	ID         string
	OwnerID    string
	Name       string
	Visibility DiaryVisibility
	Signed     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
