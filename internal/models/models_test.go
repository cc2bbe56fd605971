package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStudentHasRecentViolations(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -10)
	old := now.AddDate(0, 0, -45)

	assert.True(t, (&Student{LastViolationDate: &recent}).HasRecentViolations(now))
	assert.False(t, (&Student{LastViolationDate: &old}).HasRecentViolations(now))
	assert.False(t, (&Student{ViolationCount: 3}).HasRecentViolations(now))

	future := now.Add(2 * time.Minute)
	assert.True(t, (&Student{LastViolationDate: &future}).HasRecentViolations(now))
	boundary := now.AddDate(0, 0, -ViolationLookbackDays)
	assert.True(t, (&Student{LastViolationDate: &boundary}).HasRecentViolations(now))

	var missing *Student
	assert.False(t, missing.HasRecentViolations(now))
}

func TestRequestDataHas(t *testing.T) {
	data := RequestData{
		"guest_name": "  ",
		"start_date": "2026-04-01T10:00:00",
		"end_date":   nil,
		"zero":       time.Time{},
		"count":      0,
	}
	assert.False(t, data.Has("guest_name"))
	assert.True(t, data.Has("start_date"))
	assert.False(t, data.Has("end_date"))
	assert.False(t, data.Has("zero"))
	assert.True(t, data.Has("count"))
	assert.False(t, data.Has("missing"))
}

func TestRequestTypeRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"guest_name", "start_date", "end_date"}, RequestTypeGuest.RequiredFields())
	assert.Equal(t, []string{"start_date", "end_date", "reason"}, RequestTypeLeave.RequiredFields())
	assert.Equal(t, []string{"problem_description", "location"}, RequestTypeMaintenance.RequiredFields())
	assert.Equal(t, []string{"room_number"}, RequestTypeCleaning.RequiredFields())
	assert.Nil(t, RequestType("unknown_type").RequiredFields())
	assert.False(t, RequestType("unknown_type").Valid())
}

func TestIntentRequestType(t *testing.T) {
	rt, ok := IntentMaintenanceRequest.RequestType()
	assert.True(t, ok)
	assert.Equal(t, RequestTypeMaintenance, rt)
	_, ok = IntentRuleQuery.RequestType()
	assert.False(t, ok)
}
