package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
	"github.com/noah-isme/hostel-ops-api/pkg/llm"
)

const replyTimeLayout = "Mon 2 Jan 15:04"

type entityExtractor interface {
	Extract(ctx context.Context, text string) (*llm.Result, error)
}

type studentLoader interface {
	Get(ctx context.Context, id string) (*models.Student, error)
}

type approvalPipeline interface {
	EvaluateRequest(ctx context.Context, data models.RequestData, requestType models.RequestType, student *models.Student) models.AutoApprovalResult
	CreateGuestRecord(ctx context.Context, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (*models.GuestRequest, error)
	CreateLeaveRecord(ctx context.Context, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (*models.AbsenceRecord, error)
	CreateCleaningRecord(ctx context.Context, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (*models.CleaningRequest, error)
	ScheduleMaintenance(ctx context.Context, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (*models.MaintenanceWorkOrder, error)
}

type ruleExplainer interface {
	ExplainRule(query string, requestContext map[string]string) models.RuleExplanation
}

type confirmationSender interface {
	SendConfirmation(ctx context.Context, student *models.Student, subject, message string) (*models.DeliveryReport, error)
}

// MessageService turns a student's free-text message into a decision or a
// policy answer.
type MessageService struct {
	students  studentLoader
	extractor entityExtractor
	approvals approvalPipeline
	rules     ruleExplainer
	notifier  confirmationSender
	logger    *zap.Logger
}

// NewMessageService wires the message pipeline. extractor and notifier may be
// nil; without an extractor every message goes through keyword classification.
func NewMessageService(students studentLoader, extractor entityExtractor, approvals approvalPipeline, rules ruleExplainer, notifier confirmationSender, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		students:  students,
		extractor: extractor,
		approvals: approvals,
		rules:     rules,
		notifier:  notifier,
		logger:    logger,
	}
}

// Process handles one inbound message from studentID.
func (s *MessageService) Process(ctx context.Context, studentID, text string) (*models.MessageReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message text is required")
	}
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	extraction := s.extract(ctx, text)
	if extraction.Intent == models.IntentRuleQuery {
		explanation := s.rules.ExplainRule(text, hintsFrom(extraction.Entities))
		return &models.MessageReply{
			Intent:      extraction.Intent,
			Reply:       explanation.PolicyText,
			Explanation: &explanation,
		}, nil
	}

	requestType, ok := extraction.Intent.RequestType()
	if !ok {
		return &models.MessageReply{
			Intent: extraction.Intent,
			Reply:  "I can register guests, file leave requests, book room cleaning, report maintenance issues and explain hostel rules. What do you need?",
		}, nil
	}

	data := buildRequestData(requestType, extraction.Entities, student, text)
	result := s.approvals.EvaluateRequest(ctx, data, requestType, student)
	reply := &models.MessageReply{
		Intent:      extraction.Intent,
		RequestType: requestType,
		Decision:    &result,
	}

	switch {
	case result.Approved:
		recordID, summary, err := s.persist(ctx, requestType, data, student, result)
		if err != nil {
			return nil, err
		}
		reply.RecordID = recordID
		reply.Reply = summary
		s.confirm(ctx, student, fmt.Sprintf("%s approved", requestTypeLabel(requestType)), summary)
	case result.DecisionType == models.DecisionRejected:
		reply.Reply = fmt.Sprintf("Your %s could not be approved. %s", strings.ToLower(requestTypeLabel(requestType)), result.Reasoning)
		s.confirm(ctx, student, fmt.Sprintf("%s not approved", requestTypeLabel(requestType)), reply.Reply)
	default:
		reply.Reply = pendingReply(requestType, result, missingFields(requestType, data))
		if result.AllFieldsPresent {
			recordID, _, err := s.persist(ctx, requestType, data, student, result)
			if err != nil {
				s.logger.Warn("failed to persist escalated request", zap.String("request_type", string(requestType)), zap.Error(err))
			}
			reply.RecordID = recordID
		}
	}
	return reply, nil
}

// extract prefers the LLM and falls back to keyword classification when it is
// unavailable, fails, or returns an intent outside the known set.
func (s *MessageService) extract(ctx context.Context, text string) models.Extraction {
	if s.extractor == nil {
		return ClassifyIntent(text)
	}
	result, err := s.extractor.Extract(ctx, text)
	if err != nil {
		s.logger.Warn("llm extraction failed, using keyword fallback", zap.Error(err))
		return ClassifyIntent(text)
	}
	intent := models.Intent(strings.ToLower(strings.TrimSpace(result.Intent)))
	switch intent {
	case models.IntentGuestRequest, models.IntentLeaveRequest, models.IntentMaintenanceRequest,
		models.IntentRoomCleaning, models.IntentRuleQuery, models.IntentGeneral:
	default:
		s.logger.Info("llm returned unknown intent", zap.String("intent", result.Intent))
		return ClassifyIntent(text)
	}
	entities := result.Entities
	if entities == nil {
		entities = map[string]interface{}{}
	}
	return models.Extraction{Intent: intent, Entities: entities, Confidence: result.Confidence, Source: "llm"}
}

func (s *MessageService) persist(ctx context.Context, requestType models.RequestType, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (string, string, error) {
	switch requestType {
	case models.RequestTypeGuest:
		guest, err := s.approvals.CreateGuestRecord(ctx, data, student, result)
		if err != nil {
			return "", "", err
		}
		return guest.ID, fmt.Sprintf("Your guest %s is registered from %s to %s.",
			guest.GuestName, guest.StartDate.Format(replyTimeLayout), guest.EndDate.Format(replyTimeLayout)), nil
	case models.RequestTypeLeave:
		record, err := s.approvals.CreateLeaveRecord(ctx, data, student, result)
		if err != nil {
			return "", "", err
		}
		return record.ID, fmt.Sprintf("Your leave from %s to %s is approved. Safe travels.",
			record.StartDate.Format(replyTimeLayout), record.EndDate.Format(replyTimeLayout)), nil
	case models.RequestTypeMaintenance:
		order, err := s.approvals.ScheduleMaintenance(ctx, data, student, result)
		if err != nil {
			return "", "", err
		}
		return order.WorkOrderID, fmt.Sprintf("Work order %s is scheduled for %s with %s priority.",
			order.WorkOrderID, order.ScheduledDate.Format(replyTimeLayout), order.Priority), nil
	case models.RequestTypeCleaning:
		record, err := s.approvals.CreateCleaningRecord(ctx, data, student, result)
		if err != nil {
			return "", "", err
		}
		return record.ID, fmt.Sprintf("%s cleaning for room %s is booked.", titleCase(record.CleaningType), record.RoomNumber), nil
	default:
		return "", "", appErrors.Clone(appErrors.ErrUnknownRequestType, fmt.Sprintf("Unknown request type: %s", requestType))
	}
}

func (s *MessageService) confirm(ctx context.Context, student *models.Student, subject, message string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.SendConfirmation(ctx, student, subject, message); err != nil {
		s.logger.Warn("failed to send confirmation", zap.String("student_id", student.ID), zap.Error(err))
	}
}

func pendingReply(requestType models.RequestType, result models.AutoApprovalResult, missing []string) string {
	reviewer := models.StaffRoleWarden
	if result.EscalationRoute != nil {
		reviewer = result.EscalationRoute.StaffRole
	}
	msg := fmt.Sprintf("Your %s has been passed to the %s for review.", strings.ToLower(requestTypeLabel(requestType)), reviewer)
	if len(missing) > 0 {
		msg += fmt.Sprintf(" To speed things up, please send: %s.", strings.Join(humanFields(missing), ", "))
	}
	return msg
}

// buildRequestData copies extracted entities and fills the values a message
// implies but rarely states.
func buildRequestData(requestType models.RequestType, entities map[string]interface{}, student *models.Student, text string) models.RequestData {
	data := models.RequestData{}
	for key, value := range entities {
		data[key] = value
	}
	switch requestType {
	case models.RequestTypeMaintenance:
		if !data.Has("problem_description") {
			data["problem_description"] = text
		}
		if !data.Has("location") && student != nil && student.RoomNumber != "" {
			data["location"] = student.RoomNumber
		}
	case models.RequestTypeCleaning:
		if !data.Has("room_number") && student != nil && student.RoomNumber != "" {
			data["room_number"] = student.RoomNumber
		}
	case models.RequestTypeLeave:
		if !data.Has("reason") && data.Has("purpose") {
			data["reason"] = data["purpose"]
		}
	}
	return data
}

func hintsFrom(entities map[string]interface{}) map[string]string {
	hints := map[string]string{}
	if raw, ok := entities["request_type"]; ok {
		hints["request_type"] = cast.ToString(raw)
	}
	return hints
}

func humanFields(fields []string) []string {
	out := make([]string, len(fields))
	for i, field := range fields {
		out[i] = strings.ReplaceAll(field, "_", " ")
	}
	return out
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
