package domain

import (
	"time"

	"github.com/google/uuid"
)

// Company is the applicant profile matched against announcements.
type Company struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	Name           string     `json:"name"`
	BusinessNumber string     `json:"businessNumber,omitempty"`
	Industry       string     `json:"industry,omitempty"`
	EmployeeCount  *int       `json:"employeeCount,omitempty"`
	FoundedDate    *time.Time `json:"foundedDate,omitempty"`
	Location       string     `json:"location,omitempty"`
	Certifications []string   `json:"certifications,omitempty"`
	AnnualRevenue  *int64     `json:"annualRevenue,omitempty"`
	Description    string     `json:"description,omitempty"`
}

// profileFieldCount is the number of optional profile fields that count
// towards completeness.
const profileFieldCount = 7

// Completeness is the share of the seven optional profile fields that are
// filled in, in [0,1].
func (c *Company) Completeness() float64 {
	filled := 0
	if c.Industry != "" {
		filled++
	}
	if c.EmployeeCount != nil && *c.EmployeeCount > 0 {
		filled++
	}
	if c.FoundedDate != nil {
		filled++
	}
	if c.Location != "" {
		filled++
	}
	if c.AnnualRevenue != nil && *c.AnnualRevenue > 0 {
		filled++
	}
	if len(c.Certifications) > 0 {
		filled++
	}
	if c.Description != "" {
		filled++
	}
	return float64(filled) / profileFieldCount
}
