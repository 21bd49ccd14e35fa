package leads

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// StatusNew is the status every lead is stored with. Later transitions
// belong to the back office.
const StatusNew = "new"

const (
	minDescriptionLength = 20
	maxDescriptionLength = 1000
)

var (
	zipCodePattern = regexp.MustCompile(`^\d{5}$`)
	// Shape check only; anything with local@domain.tld passes.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Submission is the quote request body posted by the website form.
type Submission struct {
	ProjectType      string `json:"project_type"`
	Description      string `json:"description"`
	Timeline         string `json:"timeline"`
	BudgetRange      string `json:"budget_range,omitempty"`
	ZipCode          string `json:"zip_code"`
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	PreferredContact string `json:"preferred_contact"`
	SourcePage       string `json:"source_page,omitempty"`
}

// Metadata is captured from the HTTP request, never from the body.
type Metadata struct {
	UserAgent string
	IP        string
}

// Lead is a persisted submission. ID and CreatedAt come from the store.
type Lead struct {
	ID string `json:"id"`
	Submission
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type requiredField struct {
	name  string
	value string
}

func (s *Submission) requiredFields() []requiredField {
	return []requiredField{
		{"project_type", s.ProjectType},
		{"description", s.Description},
		{"timeline", s.Timeline},
		{"zip_code", s.ZipCode},
		{"full_name", s.FullName},
		{"email", s.Email},
		{"preferred_contact", s.PreferredContact},
	}
}

// Validate reports the first failing check, or nil when the submission can
// be stored. Order: required fields, description length, zip code, email.
func (s *Submission) Validate() error {
	for _, f := range s.requiredFields() {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{
				Field:   f.name,
				Message: "Missing required field: " + f.name,
			}
		}
	}

	if n := utf8.RuneCountInString(s.Description); n < minDescriptionLength || n > maxDescriptionLength {
		return &ValidationError{
			Field:   "description",
			Message: "Description must be between 20 and 1000 characters",
		}
	}

	if !zipCodePattern.MatchString(s.ZipCode) {
		return &ValidationError{
			Field:   "zip_code",
			Message: "Please enter a valid 5-digit ZIP code",
		}
	}

	if !emailPattern.MatchString(s.Email) {
		return &ValidationError{
			Field:   "email",
			Message: "Please enter a valid email address",
		}
	}

	return nil
}

// newLead builds the record a store should persist, minus the fields the
// store itself assigns.
func newLead(sub *Submission, meta Metadata) Lead {
	ip := strings.TrimSpace(meta.IP)
	if ip == "" {
		ip = UnknownClient
	}
	return Lead{
		Submission: *sub,
		UserAgent:  meta.UserAgent,
		IP:         ip,
		Status:     StatusNew,
	}
}
