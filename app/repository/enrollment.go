package repository

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
)

var ErrEnrollmentAlreadyExists = errors.New("enrollment already exists")

type EnrollmentRepository struct {
	db DBTX
}

func NewEnrollmentRepository(db DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create relies on the (account_id, course_id) unique key. A concurrent
// insert of the same pair surfaces as ErrEnrollmentAlreadyExists.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *entity.Enrollment) error {
	query := `
		INSERT INTO enrollments (account_id, course_id, created_at)
		VALUES (?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		enrollment.AccountID,
		enrollment.CourseID,
		enrollment.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrEnrollmentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	enrollment.ID = uint64(id)
	return nil
}

func (r *EnrollmentRepository) Exists(ctx context.Context, accountID, courseID uint64) (bool, error) {
	query := `SELECT COUNT(1) FROM enrollments WHERE account_id = ? AND course_id = ?`

	var count int
	if err := r.db.QueryRowContext(ctx, query, accountID, courseID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
