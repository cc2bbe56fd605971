package service

import (
	"github.com/spf13/cast"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

// Route keys of the escalation table.
const (
	routeDefault    = "default"
	routeViolations = "violations"
	routeEmergency  = "emergency"
	routeExtended   = "extended"
	routeComplex    = "complex"
	routeSpecial    = "special"

	extendedLeaveDays = 7
)

type routeTarget struct {
	role     models.StaffRole
	priority models.Priority
}

var fallbackRoute = routeTarget{role: models.StaffRoleWarden, priority: models.PriorityMedium}

var escalationTable = map[models.RequestType]map[string]routeTarget{
	models.RequestTypeGuest: {
		routeDefault:    {models.StaffRoleWarden, models.PriorityMedium},
		routeViolations: {models.StaffRoleWarden, models.PriorityHigh},
		routeEmergency:  {models.StaffRoleSecurity, models.PriorityUrgent},
	},
	models.RequestTypeLeave: {
		routeDefault:    {models.StaffRoleWarden, models.PriorityMedium},
		routeExtended:   {models.StaffRoleAdmin, models.PriorityHigh},
		routeViolations: {models.StaffRoleWarden, models.PriorityHigh},
		routeEmergency:  {models.StaffRoleWarden, models.PriorityUrgent},
	},
	models.RequestTypeMaintenance: {
		routeDefault:   {models.StaffRoleMaintenance, models.PriorityMedium},
		routeComplex:   {models.StaffRoleMaintenance, models.PriorityHigh},
		routeEmergency: {models.StaffRoleMaintenance, models.PriorityUrgent},
	},
	models.RequestTypeCleaning: {
		routeDefault: {models.StaffRoleMaintenance, models.PriorityLow},
		routeSpecial: {models.StaffRoleMaintenance, models.PriorityMedium},
	},
}

// EscalationRoute resolves who reviews an escalated request. The first
// matching key wins: student violations, emergency urgency, the type specific
// override, then the default entry.
func (e *RuleEngine) EscalationRoute(requestType models.RequestType, reason models.EscalationReason, data models.RequestData) models.EscalationRoute {
	key := e.routeKey(requestType, reason, data)
	target, ok := escalationTable[requestType][key]
	if !ok {
		target, ok = escalationTable[requestType][routeDefault]
	}
	if !ok {
		target = fallbackRoute
	}
	return models.EscalationRoute{StaffRole: target.role, Priority: target.priority, Reason: reason}
}

func (e *RuleEngine) routeKey(requestType models.RequestType, reason models.EscalationReason, data models.RequestData) string {
	if reason == models.EscalationStudentViolations {
		return routeViolations
	}
	if lowerField(data, "urgency") == "emergency" {
		return routeEmergency
	}
	switch requestType {
	case models.RequestTypeLeave:
		if e.leaveDurationDays(data) > extendedLeaveDays {
			return routeExtended
		}
	case models.RequestTypeMaintenance:
		if lowerField(data, "complexity") == "complex" {
			return routeComplex
		}
	case models.RequestTypeCleaning:
		if cleaningType := lowerField(data, "cleaning_type"); cleaningType != "" && cleaningType != "regular" {
			return routeSpecial
		}
	}
	return routeDefault
}

// leaveDurationDays prefers an explicit duration_days and otherwise derives
// it from the supplied dates.
func (e *RuleEngine) leaveDurationDays(data models.RequestData) int {
	if raw, ok := data["duration_days"]; ok && raw != nil {
		if days, err := cast.ToIntE(raw); err == nil {
			return days
		}
	}
	start := lenientDate(data["start_date"], e.loc)
	end := lenientDate(data["end_date"], e.loc)
	if start == nil || end == nil {
		return 0
	}
	return durationDays(*start, *end)
}
