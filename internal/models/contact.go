package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Birthday       time.Time
	AdditionalInfo string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
