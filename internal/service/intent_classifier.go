package service

import (
	"strings"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

// keywordConfidence is reported for every fallback classification.
const keywordConfidence = 0.5

type intentRule struct {
	intent   models.Intent
	keywords []string
}

// intentRules are checked in order and the first rule with a matching keyword
// wins. Policy questions are matched before request types.
var intentRules = []intentRule{
	{models.IntentRuleQuery, []string{"rule", "policy", "policies", "allowed", "regulation", "curfew"}},
	{models.IntentMaintenanceRequest, []string{"broken", "repair", "fix", "leak", "not working", "plumbing", "electrical", "maintenance", " ac "}},
	{models.IntentRoomCleaning, []string{"clean", "housekeeping", "tidy", "sweep"}},
	{models.IntentLeaveRequest, []string{"leave", "going home", "absence", "absent", "travel", "away for"}},
	{models.IntentGuestRequest, []string{"guest", "visitor", "visit", "friend", "family", "parents"}},
}

// ClassifyIntent is the keyword fallback used when LLM extraction is disabled
// or fails. It only classifies; entities are left for the caller to fill.
func ClassifyIntent(text string) models.Extraction {
	normalized := " " + strings.ToLower(strings.TrimSpace(text)) + " "
	for _, rule := range intentRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return models.Extraction{
					Intent:     rule.intent,
					Entities:   map[string]interface{}{},
					Confidence: keywordConfidence,
					Source:     "keywords",
				}
			}
		}
	}
	return models.Extraction{Intent: models.IntentGeneral, Entities: map[string]interface{}{}, Source: "keywords"}
}
