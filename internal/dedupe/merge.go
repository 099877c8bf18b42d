package dedupe

import (
	"time"

	"github.com/wolfman30/landlead-crm/internal/leads"
)

var statusPriority = map[leads.Status]int{
	leads.StatusNew:           0,
	leads.StatusContacted:     1,
	leads.StatusNotInterested: 1,
	leads.StatusInterested:    2,
	leads.StatusDoNotContact:  3,
}

var scorePriority = map[leads.Score]int{
	leads.ScoreCold: 0,
	leads.ScoreWarm: 1,
	leads.ScoreHot:  2,
}

// MergedLead is a lead in which every field may be absent. A nil pointer
// means no lead in the group supplied that field.
type MergedLead struct {
	ID             string         `json:"id"`
	OrgID          *string        `json:"org_id,omitempty"`
	FirstName      *string        `json:"first_name,omitempty"`
	LastName       *string        `json:"last_name,omitempty"`
	PrimaryPhone   *string        `json:"primary_phone,omitempty"`
	SecondaryPhone *string        `json:"secondary_phone,omitempty"`
	AlternatePhone *string        `json:"alternate_phone,omitempty"`
	Phone          *string        `json:"phone,omitempty"`
	Email          *string        `json:"email,omitempty"`
	Street         *string        `json:"street,omitempty"`
	City           *string        `json:"city,omitempty"`
	State          *string        `json:"state,omitempty"`
	Zip            *string        `json:"zip,omitempty"`
	County         *string        `json:"county,omitempty"`
	PropertyType   *string        `json:"property_type,omitempty"`
	Acreage        *float64       `json:"acreage,omitempty"`
	EstimatedValue *int64         `json:"estimated_value,omitempty"`
	ParcelID       *string        `json:"parcel_id,omitempty"`
	LeadSource     *string        `json:"lead_source,omitempty"`
	Status         *leads.Status  `json:"status,omitempty"`
	Score          *leads.Score   `json:"score,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	CustomFields   map[string]any `json:"custom_fields,omitempty"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
}

// FromLead copies l into a MergedLead, leaving empty fields nil.
func FromLead(l leads.Lead) MergedLead {
	m := MergedLead{
		ID:             l.ID,
		OrgID:          strPtr(l.OrgID),
		FirstName:      strPtr(l.FirstName),
		LastName:       strPtr(l.LastName),
		PrimaryPhone:   strPtr(l.PrimaryPhone),
		SecondaryPhone: strPtr(l.SecondaryPhone),
		AlternatePhone: strPtr(l.AlternatePhone),
		Phone:          strPtr(l.Phone),
		Email:          strPtr(l.Email),
		Street:         strPtr(l.Address.Street),
		City:           strPtr(l.Address.City),
		State:          strPtr(l.Address.State),
		Zip:            strPtr(l.Address.Zip),
		County:         strPtr(l.Address.County),
		PropertyType:   strPtr(l.Property.Type),
		ParcelID:       strPtr(l.Property.ParcelID),
		LeadSource:     strPtr(l.LeadSource),
		Tags:           append([]string(nil), l.Tags...),
	}
	if l.Property.Acreage != nil {
		v := *l.Property.Acreage
		m.Acreage = &v
	}
	if l.Property.EstimatedValue != nil {
		v := *l.Property.EstimatedValue
		m.EstimatedValue = &v
	}
	if l.Status != "" {
		st := l.Status
		m.Status = &st
	}
	if l.Score != "" {
		sc := l.Score
		m.Score = &sc
	}
	if len(l.CustomFields) > 0 {
		m.CustomFields = make(map[string]any, len(l.CustomFields))
		for k, v := range l.CustomFields {
			m.CustomFields[k] = v
		}
	}
	if !l.CreatedAt.IsZero() {
		t := l.CreatedAt
		m.CreatedAt = &t
	}
	if !l.UpdatedAt.IsZero() {
		t := l.UpdatedAt
		m.UpdatedAt = &t
	}
	return m
}

// ToLead flattens the merged record back into a Lead, using zero values for
// absent fields.
func (m MergedLead) ToLead() leads.Lead {
	l := leads.Lead{
		ID:             m.ID,
		OrgID:          deref(m.OrgID),
		FirstName:      deref(m.FirstName),
		LastName:       deref(m.LastName),
		PrimaryPhone:   deref(m.PrimaryPhone),
		SecondaryPhone: deref(m.SecondaryPhone),
		AlternatePhone: deref(m.AlternatePhone),
		Phone:          deref(m.Phone),
		Email:          deref(m.Email),
		Address: leads.Address{
			Street: deref(m.Street),
			City:   deref(m.City),
			State:  deref(m.State),
			Zip:    deref(m.Zip),
			County: deref(m.County),
		},
		Property: leads.Property{
			Type:           deref(m.PropertyType),
			Acreage:        m.Acreage,
			EstimatedValue: m.EstimatedValue,
			ParcelID:       deref(m.ParcelID),
		},
		LeadSource:   deref(m.LeadSource),
		Tags:         m.Tags,
		CustomFields: m.CustomFields,
	}
	if m.Status != nil {
		l.Status = *m.Status
	}
	if m.Score != nil {
		l.Score = *m.Score
	}
	if m.CreatedAt != nil {
		l.CreatedAt = *m.CreatedAt
	}
	if m.UpdatedAt != nil {
		l.UpdatedAt = *m.UpdatedAt
	}
	return l
}

// Resolver merges duplicate groups into one record.
type Resolver struct {
	selector *Selector
}

// NewResolver returns a resolver that picks primaries with selector.
func NewResolver(selector *Selector) *Resolver {
	if selector == nil {
		selector = NewSelector(DefaultPolicy())
	}
	return &Resolver{selector: selector}
}

var defaultResolver = NewResolver(defaultSelector)

// MergeLeads merges group using the default policy.
func MergeLeads(group []leads.Lead) (MergedLead, error) {
	return defaultResolver.MergeLeads(group)
}

// MergeLeads starts from the suggested primary and fills each empty field
// from the first lead in group that has it. Tags are unioned, custom fields
// overwrite by key in order, and status/score move only to strictly higher
// priority values.
func (r *Resolver) MergeLeads(group []leads.Lead) (MergedLead, error) {
	switch len(group) {
	case 0:
		return MergedLead{}, ErrEmptyInput
	case 1:
		return FromLead(group[0]), nil
	}

	primary, err := r.selector.SuggestPrimary(group)
	if err != nil {
		return MergedLead{}, err
	}
	acc := FromLead(primary)

	var tags []string
	seenTags := make(map[string]struct{})
	for i := range group {
		l := &group[i]
		fill(&acc.FirstName, l.FirstName)
		fill(&acc.LastName, l.LastName)
		fill(&acc.PrimaryPhone, l.PrimaryPhone)
		fill(&acc.SecondaryPhone, l.SecondaryPhone)
		fill(&acc.AlternatePhone, l.AlternatePhone)
		fill(&acc.Phone, l.Phone)
		fill(&acc.Email, l.Email)
		fill(&acc.Street, l.Address.Street)
		fill(&acc.City, l.Address.City)
		fill(&acc.State, l.Address.State)
		fill(&acc.Zip, l.Address.Zip)
		fill(&acc.County, l.Address.County)
		fill(&acc.PropertyType, l.Property.Type)
		fill(&acc.ParcelID, l.Property.ParcelID)
		fill(&acc.LeadSource, l.LeadSource)
		if acc.Acreage == nil && l.Property.Acreage != nil {
			v := *l.Property.Acreage
			acc.Acreage = &v
		}
		if acc.EstimatedValue == nil && l.Property.EstimatedValue != nil {
			v := *l.Property.EstimatedValue
			acc.EstimatedValue = &v
		}

		for _, tag := range l.Tags {
			if _, ok := seenTags[tag]; ok {
				continue
			}
			seenTags[tag] = struct{}{}
			tags = append(tags, tag)
		}

		if len(l.CustomFields) > 0 && acc.CustomFields == nil {
			acc.CustomFields = make(map[string]any, len(l.CustomFields))
		}
		for k, v := range l.CustomFields {
			acc.CustomFields[k] = v
		}

		if priority(statusPriority, l.Status) > priorityOf(statusPriority, acc.Status) {
			st := l.Status
			acc.Status = &st
		}
		if priority(scorePriority, l.Score) > priorityOf(scorePriority, acc.Score) {
			sc := l.Score
			acc.Score = &sc
		}
	}
	acc.Tags = tags
	return acc, nil
}

func priority[K comparable](table map[K]int, k K) int {
	if p, ok := table[k]; ok {
		return p
	}
	return -1
}

func priorityOf[K comparable](table map[K]int, k *K) int {
	if k == nil {
		return -1
	}
	return priority(table, *k)
}

func fill(dst **string, v string) {
	if *dst == nil && present(v) {
		s := v
		*dst = &s
	}
}

func strPtr(s string) *string {
	if !present(s) {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
