package mentorship

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/internal/repo"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
)

// Repository persists mentor decisions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByMentee(ctx context.Context, menteeID string) (*models.MentorAssignment, error)
	Insert(ctx context.Context, assignment *models.MentorAssignment) error
	CountActiveByMentor(ctx context.Context, mentorID string) (int64, error)
	DeleteByMentee(ctx context.Context, menteeID string) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a mentorship repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// FindByMentee returns nil without error when no decision exists.
func (r *repository) FindByMentee(ctx context.Context, menteeID string) (*models.MentorAssignment, error) {
	var assignment models.MentorAssignment
	err := r.DB(ctx).Where("mentee_id = ?", menteeID).First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) Insert(ctx context.Context, assignment *models.MentorAssignment) error {
	return r.DB(ctx).Create(assignment).Error
}

func (r *repository) CountActiveByMentor(ctx context.Context, mentorID string) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.MentorAssignment{}).
		Where("mentor_id = ? AND status = ?", mentorID, enums.AssignmentStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) DeleteByMentee(ctx context.Context, menteeID string) (int64, error) {
	res := r.DB(ctx).Where("mentee_id = ?", menteeID).Delete(&models.MentorAssignment{})
	return res.RowsAffected, res.Error
}
