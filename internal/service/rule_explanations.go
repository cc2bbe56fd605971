package service

import (
	"strings"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

type explanationRule struct {
	topic    string
	keywords []string
	build    func() models.RuleExplanation
}

// explanationRules is matched in order; the first rule with a keyword hit wins.
var explanationRules = []explanationRule{
	{topic: "guest", keywords: []string{"guest", "visitor", "visit", "friend", "family"}, build: guestExplanation},
	{topic: "leave", keywords: []string{"leave", "leaving", "absence", "absent", "home", "travel", "away"}, build: leaveExplanation},
	{topic: "maintenance", keywords: []string{"maintenance", "repair", "broken", "fix", "plumbing", "electrical", "leak"}, build: maintenanceExplanation},
	{topic: "cleaning", keywords: []string{"clean", "housekeeping", "tidy", "sweep"}, build: cleaningExplanation},
}

// ExplainRule answers a free-text policy question with a canned explanation.
// requestContext may name a request type to use when the query itself has no
// keyword hit.
func (e *RuleEngine) ExplainRule(query string, requestContext map[string]string) models.RuleExplanation {
	normalized := strings.ToLower(query)
	for _, rule := range explanationRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.build()
			}
		}
	}
	if hint := models.RequestType(requestContext["request_type"]); hint.Valid() {
		for _, rule := range explanationRules {
			explanation := rule.build()
			for _, related := range explanation.RelatedRequestTypes {
				if related == hint {
					return explanation
				}
			}
		}
	}
	return generalExplanation()
}

func guestExplanation() models.RuleExplanation {
	return models.RuleExplanation{
		Topic: "guest",
		Title: "Guest visit policy",
		PolicyText: "Guests may stay for at most 1 day and must be registered at least 24 hours in advance. " +
			"Short same-day visits are exempt from the notice requirement. Students with a policy violation " +
			"in the last 30 days need warden approval, and overlapping approved visits are not allowed.",
		Citations: []string{"Hostel Rules §3.1 Guest registration", "Hostel Rules §3.2 Guest stay duration", "Hostel Rules §7.4 Disciplinary record"},
		Examples: []string{
			"A friend visiting tomorrow from 14:00 to 18:00 is approved automatically.",
			"A relative staying for the weekend needs warden approval.",
		},
		RelatedRequestTypes: []models.RequestType{models.RequestTypeGuest},
	}
}

func leaveExplanation() models.RuleExplanation {
	return models.RuleExplanation{
		Topic: "leave",
		Title: "Leave and absence policy",
		PolicyText: "Leave of up to 2 days submitted at least 24 hours before departure is approved automatically " +
			"for students without a recent violation. Longer leave, late submissions and students with a " +
			"violation in the last 30 days are reviewed by the warden.",
		Citations: []string{"Hostel Rules §4.1 Leave requests", "Hostel Rules §4.3 Extended absence", "Hostel Rules §7.4 Disciplinary record"},
		Examples: []string{
			"Going home from Friday evening to Sunday, requested on Wednesday, is approved automatically.",
			"A week-long trip is forwarded to the administration.",
		},
		RelatedRequestTypes: []models.RequestType{models.RequestTypeLeave},
	}
}

func maintenanceExplanation() models.RuleExplanation {
	return models.RuleExplanation{
		Topic: "maintenance",
		Title: "Maintenance requests",
		PolicyText: "Emergencies are scheduled immediately with urgent priority. Basic issues (plumbing, minor " +
			"electrical, furniture, cleaning, AC repair) are scheduled for the next day. Other issues are " +
			"assessed by the maintenance team first.",
		Citations: []string{"Hostel Rules §5.1 Reporting faults", "Hostel Rules §5.2 Emergency repairs"},
		Examples: []string{
			"A leaking tap is scheduled for the next day.",
			"A burst pipe flooding the room is handled immediately.",
		},
		RelatedRequestTypes: []models.RequestType{models.RequestTypeMaintenance},
	}
}

func cleaningExplanation() models.RuleExplanation {
	return models.RuleExplanation{
		Topic:      "cleaning",
		Title:      "Room cleaning",
		PolicyText: "Regular, weekly and standard cleaning is booked automatically. Deep or special cleaning is scheduled by staff.",
		Citations:  []string{"Hostel Rules §6.1 Housekeeping"},
		Examples: []string{
			"A weekly cleaning on Saturday morning is booked automatically.",
			"A deep clean before moving out is scheduled by the maintenance team.",
		},
		RelatedRequestTypes: []models.RequestType{models.RequestTypeCleaning},
	}
}

func generalExplanation() models.RuleExplanation {
	return models.RuleExplanation{
		Topic: "general",
		Title: "Hostel policies overview",
		PolicyText: "Guest visits are limited to 1 day with 24 hours notice. Leave of up to 2 days with 24 hours " +
			"notice is approved automatically. Emergencies and basic repairs are scheduled without review. " +
			"Standard cleaning is booked automatically. Everything else goes to the responsible staff member.",
		Citations: []string{"Hostel Rules §3 Guests", "Hostel Rules §4 Leave", "Hostel Rules §5 Maintenance", "Hostel Rules §6 Housekeeping"},
		Examples: []string{
			"Ask about guests, leave, maintenance or cleaning for details.",
		},
		RelatedRequestTypes: append([]models.RequestType(nil), models.RequestTypes...),
	}
}
