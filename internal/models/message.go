package models

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentGuestRequest       Intent = "guest_request"
	IntentLeaveRequest       Intent = "leave_request"
	IntentMaintenanceRequest Intent = "maintenance_request"
	IntentRoomCleaning       Intent = "room_cleaning"
	IntentRuleQuery          Intent = "rule_inquiry"
	IntentGeneral            Intent = "general_query"
	IntentUnknown            Intent = "unknown"
)

// RequestType maps request intents onto their request type.
func (i Intent) RequestType() (RequestType, bool) {
	switch i {
	case IntentGuestRequest:
		return RequestTypeGuest, true
	case IntentLeaveRequest:
		return RequestTypeLeave, true
	case IntentMaintenanceRequest:
		return RequestTypeMaintenance, true
	case IntentRoomCleaning:
		return RequestTypeCleaning, true
	default:
		return "", false
	}
}

// Extraction is the structured reading of a free-text message.
type Extraction struct {
	Intent     Intent                 `json:"intent"`
	Entities   map[string]interface{} `json:"entities"`
	Confidence float64                `json:"confidence"`
	Source     string                 `json:"source"`
}

// MessageReply is returned to the sender of an inbound message.
type MessageReply struct {
	Intent      Intent              `json:"intent"`
	Reply       string              `json:"reply"`
	RequestType RequestType         `json:"request_type,omitempty"`
	RecordID    string              `json:"record_id,omitempty"`
	Decision    *AutoApprovalResult `json:"decision,omitempty"`
	Explanation *RuleExplanation    `json:"explanation,omitempty"`
}
