package data

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/types"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

// HistoryColumns maps the API's order keys onto table columns.
var HistoryColumns = map[string]string{
	"createdAt": "created_at",
	"agentId":   "agent_id",
	"sessionId": "session_id",
}

type Histories struct {
	db *gorm.DB
}

func NewHistories(db *gorm.DB) *Histories {
	return &Histories{db: db}
}

func (h *Histories) Create(ctx context.Context, rec *types.SearchHistory) error {
	return h.db.WithContext(ctx).Create(rec).Error
}

// List returns the records of f.UserID only.
func (h *Histories) List(ctx context.Context, f types.HistoryFilter) ([]types.SearchHistory, error) {
	column, ok := HistoryColumns[f.OrderBy]
	if !ok {
		column = "created_at"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	q := h.db.WithContext(ctx).Where("created_by = ?", f.UserID)
	if f.AgentID != "" {
		q = q.Where("agent_id = ?", f.AgentID)
	}
	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}

	var out []types.SearchHistory
	err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: f.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: f.Desc}).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
