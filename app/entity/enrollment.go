package entity

import "time"

type Enrollment struct {
	ID uint64

	AccountID uint64
	CourseID  uint64

	CreatedAt time.Time
}
