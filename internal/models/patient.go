package models

import "time"

// Patient is one person treated by the practice. DisplayName must be
// non-empty at creation; every other demographic field is optional.
type Patient struct {
	ID          string  `db:"id" json:"id"`
	DisplayName string  `db:"display_name" json:"display_name"`
	FirstName   *string `db:"first_name" json:"first_name,omitempty"`
	LastName    *string `db:"last_name" json:"last_name,omitempty"`
	DNI         *string `db:"dni" json:"dni,omitempty"`
	Gender      *string `db:"gender" json:"gender,omitempty"`
	BirthDate   *string `db:"birth_date" json:"birth_date,omitempty"`
	Phone       *string `db:"phone" json:"phone,omitempty"`
	Address     *string `db:"address" json:"address,omitempty"`
	CreatedAt   Instant `db:"created_at" json:"created_at"`
	UpdatedAt   Instant `db:"updated_at" json:"updated_at"`
}

// Age returns the patient's age in full years at the given moment, or
// nil when the birth date is missing or not a valid YYYY-MM-DD value.
func (p *Patient) Age(now time.Time) *int {
	if p == nil || p.BirthDate == nil {
		return nil
	}
	born, err := time.Parse("2006-01-02", *p.BirthDate)
	if err != nil {
		return nil
	}
	years := now.Year() - born.Year()
	anniversary := time.Date(now.Year(), born.Month(), born.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}
