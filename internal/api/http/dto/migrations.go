package dto

import (
	"time"

	"github.com/toolsascode/restorm/internal/migration"
)

// RevisionItem represents a single revision in the list
type RevisionItem struct {
	ID            string    `json:"id"`
	DownRevisions []string  `json:"down_revisions"`
	BranchLabels  []string  `json:"branch_labels"`
	Message       string    `json:"message"`
	CreateDate    time.Time `json:"create_date"`
	IsHead        bool      `json:"is_head"`
	IsCurrent     bool      `json:"is_current"`
	IsApplied     bool      `json:"is_applied"`
}

// NewRevisionItem converts a history entry
func NewRevisionItem(e migration.HistoryEntry) RevisionItem {
	return RevisionItem{
		ID:            e.Revision.ID,
		DownRevisions: nonNil(e.Revision.DownRevisions),
		BranchLabels:  nonNil(e.Revision.BranchLabels),
		Message:       e.Revision.Message,
		CreateDate:    e.Revision.CreateDate,
		IsHead:        e.IsHead,
		IsCurrent:     e.IsCurrent,
		IsApplied:     e.IsApplied,
	}
}

// RevisionsResponse lists revisions, heads first
type RevisionsResponse struct {
	Items   []RevisionItem `json:"items"`
	Heads   []string       `json:"heads"`
	Current []string       `json:"current"`
	Pending int            `json:"pending"`
}

// HistoryFilters specifies filters for the execution history
type HistoryFilters struct {
	Revision string `form:"revision" binding:"omitempty,max=32"`
	Status   string `form:"status" binding:"omitempty,oneof=success failed"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
