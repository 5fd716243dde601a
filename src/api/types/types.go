package types

import "time"

const (
	AgentOne = "agent-1"
	AgentTwo = "agent-2"

	RoleUser  = "user"
	RoleAdmin = "admin"

	// MaxSessionIDLength matches the session_id column size.
	MaxSessionIDLength = 64
)

// ValidAgent reports whether id names one of the two dashboard agents.
func ValidAgent(id string) bool {
	return id == AgentOne || id == AgentTwo
}

// Users
type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	FullName     string `gorm:"size:255;not null"`
	Role         string `gorm:"size:16;not null;default:user"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Questions asked to an agent and the answer it gave
type SearchHistory struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	AgentID   string    `gorm:"size:16;index;not null" json:"agentId"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:mediumtext;not null" json:"answer"`
	SessionID string    `gorm:"size:64;index" json:"sessionId"`
	CreatedBy uint64    `gorm:"index;not null" json:"createdBy"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryFilter narrows a history listing to one user.
type HistoryFilter struct {
	UserID    uint64
	AgentID   string
	SessionID string
	OrderBy   string
	Desc      bool
	Limit     int
}
