package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	"github.com/noah-isme/hostel-ops-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

type reviewWriter interface {
	Review(ctx context.Context, id string, status models.RequestStatus, reviewer, note string, at time.Time) error
}

type guestReviewStore interface {
	reviewWriter
	FindByID(ctx context.Context, id string) (*models.GuestRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.GuestRequest, int, error)
}

type absenceReviewStore interface {
	reviewWriter
	FindByID(ctx context.Context, id string) (*models.AbsenceRecord, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.AbsenceRecord, int, error)
}

type workOrderReviewStore interface {
	reviewWriter
	FindByID(ctx context.Context, id string) (*models.MaintenanceWorkOrder, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceWorkOrder, int, error)
}

type cleaningReviewStore interface {
	reviewWriter
	FindByID(ctx context.Context, id string) (*models.CleaningRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.CleaningRequest, int, error)
}

type requestQueue interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestSummary, int, error)
}

// ReviewStores groups the per-type request stores used for manual review.
type ReviewStores struct {
	Guests     guestReviewStore
	Absences   absenceReviewStore
	WorkOrders workOrderReviewStore
	Cleaning   cleaningReviewStore
	Queue      requestQueue
}

// RequestReviewService lets staff decide escalated requests.
type RequestReviewService struct {
	stores    ReviewStores
	students  studentLoader
	audit     auditLogger
	notifier  confirmationSender
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRequestReviewService constructs the review service. notifier may be nil.
func NewRequestReviewService(stores ReviewStores, students studentLoader, audit auditLogger, notifier confirmationSender, validate *validator.Validate, logger *zap.Logger) *RequestReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestReviewService{
		stores:    stores,
		students:  students,
		audit:     audit,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Queue lists requests of every type, typically filtered to pending.
func (s *RequestReviewService) Queue(ctx context.Context, filter models.RequestFilter) ([]models.RequestSummary, *models.Pagination, error) {
	if s.stores.Queue == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "request queue not configured")
	}
	items, total, err := s.stores.Queue.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return nonNil(items), pagination(filter.Page, filter.PageSize, total), nil
}

// List returns requests of a single type. The slice element type depends on
// requestType.
func (s *RequestReviewService) List(ctx context.Context, requestType models.RequestType, filter models.RequestFilter) (interface{}, *models.Pagination, error) {
	var (
		items interface{}
		total int
		err   error
	)
	switch requestType {
	case models.RequestTypeGuest:
		var rows []models.GuestRequest
		rows, total, err = s.stores.Guests.List(ctx, filter)
		items = nonNil(rows)
	case models.RequestTypeLeave:
		var rows []models.AbsenceRecord
		rows, total, err = s.stores.Absences.List(ctx, filter)
		items = nonNil(rows)
	case models.RequestTypeMaintenance:
		var rows []models.MaintenanceWorkOrder
		rows, total, err = s.stores.WorkOrders.List(ctx, filter)
		items = nonNil(rows)
	case models.RequestTypeCleaning:
		var rows []models.CleaningRequest
		rows, total, err = s.stores.Cleaning.List(ctx, filter)
		items = nonNil(rows)
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrUnknownRequestType, fmt.Sprintf("Unknown request type: %s", requestType))
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// Review applies a staff decision to a pending request, records a
// manual_review audit entry and tells the student.
func (s *RequestReviewService) Review(ctx context.Context, requestType models.RequestType, id string, decision models.ReviewDecision, reviewer models.JWTClaims) (*models.ReviewOutcome, error) {
	if err := s.validator.Struct(decision); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	status := models.RequestStatusRejected
	if decision.Action == models.ReviewApprove {
		status = models.RequestStatusApproved
	}

	studentID, store, err := s.lookup(ctx, requestType, id)
	if err != nil {
		return nil, err
	}
	at := s.now()
	if err := store.Review(ctx, id, status, reviewer.UserID, decision.Note, at); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyReviewed, "request has already been reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record review")
	}

	if s.audit != nil {
		entry := &models.AuditLog{
			ActionType:      models.AuditActionManualReview,
			EntityType:      string(requestType),
			EntityID:        optionalString(id),
			Decision:        string(status),
			Reasoning:       decision.Note,
			ConfidenceScore: 1,
			RulesApplied:    []byte(`["manual_review"]`),
			UserID:          optionalString(reviewer.UserID),
			UserType:        models.AuditUserStaff,
			Metadata:        marshalJSON(map[string]interface{}{"student_id": studentID, "reviewer_role": reviewer.Role}, "{}"),
			CreatedAt:       at,
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record manual review audit", zap.String("request_id", id), zap.Error(err))
		}
	}
	s.notifyStudent(ctx, studentID, requestType, status, decision.Note)

	return &models.ReviewOutcome{
		RequestType: requestType,
		RequestID:   id,
		StudentID:   studentID,
		Status:      status,
		ReviewedBy:  reviewer.UserID,
		ReviewedAt:  at,
	}, nil
}

func (s *RequestReviewService) lookup(ctx context.Context, requestType models.RequestType, id string) (string, reviewWriter, error) {
	var (
		studentID string
		store     reviewWriter
		err       error
	)
	switch requestType {
	case models.RequestTypeGuest:
		var req *models.GuestRequest
		if req, err = s.stores.Guests.FindByID(ctx, id); err == nil {
			studentID = req.StudentID
		}
		store = s.stores.Guests
	case models.RequestTypeLeave:
		var rec *models.AbsenceRecord
		if rec, err = s.stores.Absences.FindByID(ctx, id); err == nil {
			studentID = rec.StudentID
		}
		store = s.stores.Absences
	case models.RequestTypeMaintenance:
		var order *models.MaintenanceWorkOrder
		if order, err = s.stores.WorkOrders.FindByID(ctx, id); err == nil {
			studentID = order.StudentID
		}
		store = s.stores.WorkOrders
	case models.RequestTypeCleaning:
		var req *models.CleaningRequest
		if req, err = s.stores.Cleaning.FindByID(ctx, id); err == nil {
			studentID = req.StudentID
		}
		store = s.stores.Cleaning
	default:
		return "", nil, appErrors.Clone(appErrors.ErrUnknownRequestType, fmt.Sprintf("Unknown request type: %s", requestType))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return studentID, store, nil
}

func (s *RequestReviewService) notifyStudent(ctx context.Context, studentID string, requestType models.RequestType, status models.RequestStatus, note string) {
	if s.notifier == nil || s.students == nil {
		return
	}
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to load student for review confirmation", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	label := requestTypeLabel(requestType)
	message := fmt.Sprintf("Your %s was %s by hostel staff.", strings.ToLower(label), status)
	if note != "" {
		message += " Note: " + note
	}
	if _, err := s.notifier.SendConfirmation(ctx, student, fmt.Sprintf("%s %s", label, status), message); err != nil {
		s.logger.Warn("failed to send review confirmation", zap.String("student_id", studentID), zap.Error(err))
	}
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func pagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
