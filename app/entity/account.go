package entity

import "time"

type Account struct {
	ID uint64

	Email        string
	Name         string
	Phone        string
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}
