package service

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
)

type enrollmentInserter interface {
	CreateEnrollment(ctx context.Context, enrollment *entity.Enrollment) error
}

// EnrollmentGranter creates the account/course access row. The unique key
// on (account_id, course_id) decides concurrent grants: the loser sees a
// duplicate and reports created=false.
type EnrollmentGranter struct {
	now func() time.Time
}

func NewEnrollmentGranter() *EnrollmentGranter {
	return &EnrollmentGranter{now: func() time.Time { return time.Now().UTC() }}
}

func (g *EnrollmentGranter) GrantIfAbsent(ctx context.Context, inserter enrollmentInserter, accountID, courseID uint64) (bool, error) {
	if accountID == 0 || courseID == 0 {
		return false, ErrInvalidRequest
	}

	err := inserter.CreateEnrollment(ctx, &entity.Enrollment{
		AccountID: accountID,
		CourseID:  courseID,
		CreatedAt: g.now(),
	})
	if errors.Is(err, repository.ErrEnrollmentAlreadyExists) {
		metrics.IncEnrollmentGrant(false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	metrics.IncEnrollmentGrant(true)
	return true, nil
}
