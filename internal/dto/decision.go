package dto

import "github.com/noah-isme/hostel-ops-api/internal/models"

// EvaluateRequest is the POST /requests/evaluate payload.
type EvaluateRequest struct {
	RequestType models.RequestType `json:"request_type" binding:"required"`
	StudentID   string             `json:"student_id"`
	RequestData models.RequestData `json:"request_data" binding:"required"`
}

// EscalationRouteQuery is bound from GET /requests/escalation-route.
type EscalationRouteQuery struct {
	RequestType  string `form:"request_type" binding:"required"`
	Reason       string `form:"reason"`
	Urgency      string `form:"urgency"`
	Complexity   string `form:"complexity"`
	CleaningType string `form:"cleaning_type"`
	DurationDays *int   `form:"duration_days"`
}

// RequestData converts the optional hints into request data for routing.
func (q EscalationRouteQuery) RequestData() models.RequestData {
	data := models.RequestData{}
	if q.Urgency != "" {
		data["urgency"] = q.Urgency
	}
	if q.Complexity != "" {
		data["complexity"] = q.Complexity
	}
	if q.CleaningType != "" {
		data["cleaning_type"] = q.CleaningType
	}
	if q.DurationDays != nil {
		data["duration_days"] = *q.DurationDays
	}
	return data
}

// RuleQuery is bound from GET /rules/explain.
type RuleQuery struct {
	Query       string `form:"q" binding:"required"`
	RequestType string `form:"request_type"`
}
