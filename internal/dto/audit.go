package dto

import (
	"time"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

// AuditQuery is bound from the audit listing and export query strings.
type AuditQuery struct {
	ActionType string `form:"action_type"`
	EntityType string `form:"entity_type"`
	Decision   string `form:"decision"`
	UserID     string `form:"user_id"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
	Format     string `form:"format"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// Filter parses the date bounds. Dates accept RFC3339 or YYYY-MM-DD; a bare
// date_to covers the whole day.
func (q AuditQuery) Filter() (models.AuditLogFilter, error) {
	filter := models.AuditLogFilter{
		ActionType: q.ActionType,
		EntityType: q.EntityType,
		Decision:   q.Decision,
		UserID:     q.UserID,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
	if q.DateFrom != "" {
		from, _, err := parseQueryTime(q.DateFrom)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &from
	}
	if q.DateTo != "" {
		to, dateOnly, err := parseQueryTime(q.DateTo)
		if err != nil {
			return filter, err
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.DateTo = &to
	}
	return filter, nil
}

func parseQueryTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	return t, true, err
}
