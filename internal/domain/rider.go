package domain

import "time"

// Rider is a registered passenger.
type Rider struct {
	ID        string
	Name      string
	Phone     string
	CreatedAt time.Time
}
