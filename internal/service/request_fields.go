package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

// dateLayouts are tried in order before falling back to cast's parser.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate converts a raw request_data value into a timestamp. Strings
// without a zone are read in loc. A nil value yields (nil, nil).
func parseDate(value interface{}, loc *time.Location) (*time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if v.IsZero() {
			return nil, nil
		}
		return &v, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil, nil
		}
		t := *v
		return &t, nil
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" {
			return nil, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
				return &t, nil
			}
		}
		t, err := cast.ToTimeInDefaultLocationE(raw, loc)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", raw, err)
		}
		return &t, nil
	default:
		t, err := cast.ToTimeInDefaultLocationE(v, loc)
		if err != nil {
			return nil, fmt.Errorf("parse date %v: %w", v, err)
		}
		return &t, nil
	}
}

// lenientDate treats unparseable values as absent.
func lenientDate(value interface{}, loc *time.Location) *time.Time {
	t, err := parseDate(value, loc)
	if err != nil {
		return nil
	}
	return t
}

func stringField(data models.RequestData, key string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(value))
}

func lowerField(data models.RequestData, key string) string {
	return strings.ToLower(stringField(data, key))
}

// durationDays counts whole days between start and end. A positive span
// shorter than a day still counts as one day.
func durationDays(start, end time.Time) int {
	span := end.Sub(start)
	days := int(span / (24 * time.Hour))
	if days == 0 && span > 0 {
		days = 1
	}
	return days
}

// approvalRequest is the closed set of request variants the engines accept.
type approvalRequest interface {
	requestType() models.RequestType
}

type guestRequest struct {
	GuestName  string
	GuestPhone string
	Purpose    string
	Start      *time.Time
	End        *time.Time
}

type leaveRequest struct {
	Start          *time.Time
	End            *time.Time
	Reason         string
	EmergencyPhone string
	DurationDays   *int
}

type maintenanceRequest struct {
	IssueType   string
	Description string
	Location    string
	Urgency     string
	Complexity  string
}

type cleaningRequest struct {
	RoomNumber    string
	CleaningType  string
	PreferredTime *time.Time
	Notes         string
}

func (guestRequest) requestType() models.RequestType       { return models.RequestTypeGuest }
func (leaveRequest) requestType() models.RequestType       { return models.RequestTypeLeave }
func (maintenanceRequest) requestType() models.RequestType { return models.RequestTypeMaintenance }
func (cleaningRequest) requestType() models.RequestType    { return models.RequestTypeCleaning }

// newApprovalRequest decodes raw request_data into its typed variant. Guest
// dates must parse when supplied; the other variants treat bad dates as absent.
func newApprovalRequest(requestType models.RequestType, data models.RequestData, loc *time.Location) (approvalRequest, error) {
	switch requestType {
	case models.RequestTypeGuest:
		start, err := parseDate(data["start_date"], loc)
		if err != nil {
			return nil, fmt.Errorf("guest start_date: %w", err)
		}
		end, err := parseDate(data["end_date"], loc)
		if err != nil {
			return nil, fmt.Errorf("guest end_date: %w", err)
		}
		return guestRequest{
			GuestName:  stringField(data, "guest_name"),
			GuestPhone: stringField(data, "guest_phone"),
			Purpose:    stringField(data, "purpose"),
			Start:      start,
			End:        end,
		}, nil
	case models.RequestTypeLeave:
		req := leaveRequest{
			Start:          lenientDate(data["start_date"], loc),
			End:            lenientDate(data["end_date"], loc),
			Reason:         stringField(data, "reason"),
			EmergencyPhone: stringField(data, "emergency_contact"),
		}
		if raw, ok := data["duration_days"]; ok && raw != nil {
			if days, err := cast.ToIntE(raw); err == nil {
				req.DurationDays = &days
			}
		}
		return req, nil
	case models.RequestTypeMaintenance:
		return maintenanceRequest{
			IssueType:   lowerField(data, "issue_type"),
			Description: stringField(data, "problem_description"),
			Location:    stringField(data, "location"),
			Urgency:     lowerField(data, "urgency"),
			Complexity:  lowerField(data, "complexity"),
		}, nil
	case models.RequestTypeCleaning:
		cleaningType := lowerField(data, "cleaning_type")
		if cleaningType == "" {
			cleaningType = "regular"
		}
		return cleaningRequest{
			RoomNumber:    stringField(data, "room_number"),
			CleaningType:  cleaningType,
			PreferredTime: lenientDate(data["preferred_time"], loc),
			Notes:         stringField(data, "notes"),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnknownRequestType, fmt.Sprintf("Unknown request type: %s", requestType))
	}
}

// allFieldsPresent checks the raw payload against the type's required list,
// independently of any defaulting the rule engine performs.
func allFieldsPresent(requestType models.RequestType, data models.RequestData) bool {
	return len(requestType.RequiredFields()) > 0 && len(missingFields(requestType, data)) == 0
}

// missingFields lists the required keys absent from data, in declaration order.
func missingFields(requestType models.RequestType, data models.RequestData) []string {
	var missing []string
	for _, field := range requestType.RequiredFields() {
		if !data.Has(field) {
			missing = append(missing, field)
		}
	}
	return missing
}
