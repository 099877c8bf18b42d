package leads

import (
	"strings"
	"time"
)

// Status is the pipeline stage of a lead.
type Status string

const (
	StatusNew           Status = "new"
	StatusContacted     Status = "contacted"
	StatusInterested    Status = "interested"
	StatusNotInterested Status = "not_interested"
	StatusDoNotContact  Status = "do_not_contact"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusInterested, StatusNotInterested, StatusDoNotContact:
		return true
	}
	return false
}

// Score is the temperature of a lead.
type Score string

const (
	ScoreCold Score = "cold"
	ScoreWarm Score = "warm"
	ScoreHot  Score = "hot"
)

// Valid reports whether s is one of the known scores.
func (s Score) Valid() bool {
	switch s {
	case ScoreCold, ScoreWarm, ScoreHot:
		return true
	}
	return false
}

// Address is the mailing/property location of a lead.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
	County string `json:"county,omitempty"`
}

// IsZero reports whether no address field is set.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.Zip) == "" &&
		strings.TrimSpace(a.County) == ""
}

// Property describes the parcel a lead owns.
type Property struct {
	Type           string   `json:"type,omitempty"`
	Acreage        *float64 `json:"acreage,omitempty"`
	EstimatedValue *int64   `json:"estimated_value,omitempty"`
	ParcelID       string   `json:"parcel_id,omitempty"`
}

// Lead represents a property owner contact record
type Lead struct {
	ID             string         `json:"id"`
	OrgID          string         `json:"org_id,omitempty"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	PrimaryPhone   string         `json:"primary_phone"`
	SecondaryPhone string         `json:"secondary_phone,omitempty"`
	AlternatePhone string         `json:"alternate_phone,omitempty"`
	Phone          string         `json:"phone,omitempty"` // legacy alias of primary phone
	Email          string         `json:"email,omitempty"`
	Address        Address        `json:"address"`
	Property       Property       `json:"property"`
	LeadSource     string         `json:"lead_source,omitempty"`
	Status         Status         `json:"status,omitempty"`
	Score          Score          `json:"score,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	CustomFields   map[string]any `json:"custom_fields,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// AllPhones returns the populated phone fields in primary, secondary,
// alternate, legacy order.
func (l *Lead) AllPhones() []string {
	phones := make([]string, 0, 4)
	for _, p := range []string{l.PrimaryPhone, l.SecondaryPhone, l.AlternatePhone, l.Phone} {
		if strings.TrimSpace(p) != "" {
			phones = append(phones, p)
		}
	}
	return phones
}

// UniquePhones returns AllPhones without repeated raw values.
func (l *Lead) UniquePhones() []string {
	all := l.AllPhones()
	seen := make(map[string]struct{}, len(all))
	unique := all[:0:0]
	for _, p := range all {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

// HasPhone reports whether any phone field is populated.
func (l *Lead) HasPhone() bool {
	return len(l.AllPhones()) > 0
}

// FullName joins first and last name with a single space.
func (l *Lead) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(l.FirstName) + " " + strings.TrimSpace(l.LastName))
}

// DisplayName is the name shown in lists, falling back to the primary phone.
func (l *Lead) DisplayName() string {
	if name := l.FullName(); name != "" {
		return name
	}
	if phones := l.AllPhones(); len(phones) > 0 {
		return phones[0]
	}
	return l.ID
}

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	OrgID          string         `json:"-"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	PrimaryPhone   string         `json:"primary_phone"`
	SecondaryPhone string         `json:"secondary_phone,omitempty"`
	AlternatePhone string         `json:"alternate_phone,omitempty"`
	Email          string         `json:"email,omitempty"`
	Address        Address        `json:"address"`
	Property       Property       `json:"property"`
	LeadSource     string         `json:"lead_source,omitempty"`
	Status         Status         `json:"status,omitempty"`
	Score          Score          `json:"score,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	CustomFields   map[string]any `json:"custom_fields,omitempty"`
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.OrgID) == "" {
		return ErrMissingOrgID
	}
	if strings.TrimSpace(r.FirstName) == "" && strings.TrimSpace(r.LastName) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.PrimaryPhone) == "" {
		return ErrMissingPhone
	}
	for _, p := range []string{r.PrimaryPhone, r.SecondaryPhone, r.AlternatePhone} {
		if p != "" && countDigits(p) < 10 {
			return ErrInvalidPhone
		}
	}
	if r.Email != "" && !validEmail(r.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// ToLead builds a new lead from the request, applying status/score defaults.
func (r *CreateLeadRequest) ToLead(id string, now time.Time) *Lead {
	status := r.Status
	if !status.Valid() {
		status = StatusNew
	}
	score := r.Score
	if !score.Valid() {
		score = ScoreCold
	}
	return &Lead{
		ID:             id,
		OrgID:          r.OrgID,
		FirstName:      strings.TrimSpace(r.FirstName),
		LastName:       strings.TrimSpace(r.LastName),
		PrimaryPhone:   r.PrimaryPhone,
		SecondaryPhone: r.SecondaryPhone,
		AlternatePhone: r.AlternatePhone,
		Email:          strings.ToLower(strings.TrimSpace(r.Email)),
		Address:        r.Address,
		Property:       r.Property,
		LeadSource:     r.LeadSource,
		Status:         status,
		Score:          score,
		Tags:           r.Tags,
		CustomFields:   r.CustomFields,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ParseTimestamp parses an ISO-8601 timestamp from an import row. Unparseable
// input yields the zero time, which downstream code treats as unknown.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
