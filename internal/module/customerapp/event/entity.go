package event

import "time"

const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusArchived  = "ARCHIVED"
)

type Event struct {
	ID          string
	Name        string
	Description string
	Venue       string
	StartsAt    time.Time
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
