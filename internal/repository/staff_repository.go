package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

// StaffRepository resolves notification recipients.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// ListActiveByRoles returns active staff holding any of roles, with their
// comma separated channel preferences split out.
func (r *StaffRepository) ListActiveByRoles(ctx context.Context, roles []models.StaffRole) ([]models.StaffMember, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, full_name, role, email, phone, preferred_channels, active FROM staff WHERE active = TRUE AND role IN (?) ORDER BY full_name`, roles)
	if err != nil {
		return nil, fmt.Errorf("build staff query: %w", err)
	}
	query = r.db.Rebind(query)

	var staff []models.StaffMember
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, fmt.Errorf("list staff by roles: %w", err)
	}
	for i := range staff {
		staff[i].PreferredChannels = splitChannels(staff[i].RawChannels)
	}
	return staff, nil
}

func splitChannels(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
