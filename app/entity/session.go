package entity

import "time"

type Session struct {
	Token     string
	AccountID uint64
	ExpiresAt time.Time
}
