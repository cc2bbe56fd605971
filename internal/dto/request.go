package dto

import "github.com/noah-isme/hostel-ops-api/internal/models"

// RequestQuery is bound from the request listing query strings.
type RequestQuery struct {
	StudentID string `form:"student_id"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// Filter converts the query into a repository filter.
func (q RequestQuery) Filter() models.RequestFilter {
	return models.RequestFilter{
		StudentID: q.StudentID,
		Status:    models.RequestStatus(q.Status),
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
}
