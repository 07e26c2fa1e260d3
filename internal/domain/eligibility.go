package domain

import "time"

// Range is a numeric constraint such as an employee count or revenue band.
// A nil bound means unbounded on that side.
type Range struct {
	Min         *float64 `json:"min"`
	Max         *float64 `json:"max"`
	Description string   `json:"description,omitempty"`
}

// Scope lists included and excluded values, e.g. industries or regions.
type Scope struct {
	Included    []string `json:"included"`
	Excluded    []string `json:"excluded"`
	Description string   `json:"description"`
}

// EligibilityCriteria is the structured form of an announcement's
// applicant requirements.
type EligibilityCriteria struct {
	CompanyTypes           []string  `json:"companyTypes"`
	EmployeeCount          *Range    `json:"employeeCount"`
	Revenue                *Range    `json:"revenue"`
	BusinessAge            *Range    `json:"businessAge"`
	Industries             Scope     `json:"industries"`
	Regions                Scope     `json:"regions"`
	RequiredCertifications []string  `json:"requiredCertifications"`
	AdditionalRequirements []string  `json:"additionalRequirements"`
	Exclusions             []string  `json:"exclusions"`
	Summary                string    `json:"summary"`
	Confidence             float64   `json:"confidence"`
	ParsedAt               time.Time `json:"parsedAt"`
}

// EligibilityParseFailedSummary is the summary of the fallback criteria.
const EligibilityParseFailedSummary = "지원자격 정보를 파싱할 수 없습니다."

// DefaultEligibilityCriteria is returned when a model response could not be
// turned into criteria. Its confidence is 0 so callers can tell it apart.
func DefaultEligibilityCriteria(parsedAt time.Time) *EligibilityCriteria {
	return &EligibilityCriteria{
		CompanyTypes:           []string{},
		Industries:             Scope{Included: []string{}, Excluded: []string{}},
		Regions:                Scope{Included: []string{}, Excluded: []string{}},
		RequiredCertifications: []string{},
		AdditionalRequirements: []string{},
		Exclusions:             []string{},
		Summary:                EligibilityParseFailedSummary,
		Confidence:             0,
		ParsedAt:               parsedAt.UTC(),
	}
}

// Normalize replaces nil slices with empty ones so stored JSON never holds
// null lists.
func (c *EligibilityCriteria) Normalize() {
	if c.CompanyTypes == nil {
		c.CompanyTypes = []string{}
	}
	c.Industries.normalize()
	c.Regions.normalize()
	if c.RequiredCertifications == nil {
		c.RequiredCertifications = []string{}
	}
	if c.AdditionalRequirements == nil {
		c.AdditionalRequirements = []string{}
	}
	if c.Exclusions == nil {
		c.Exclusions = []string{}
	}
}

func (s *Scope) normalize() {
	if s.Included == nil {
		s.Included = []string{}
	}
	if s.Excluded == nil {
		s.Excluded = []string{}
	}
}
