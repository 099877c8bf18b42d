package dedupe

import (
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/landlead-crm/internal/leads"
)

// RankedLead is a lead with the score used to pick a primary.
type RankedLead struct {
	Lead         leads.Lead `json:"lead"`
	Score        float64    `json:"score"`
	Completeness float64    `json:"completeness"`
	Recency      float64    `json:"recency"`
	Activity     float64    `json:"activity"`
}

// Selector chooses the surviving record of a duplicate group.
type Selector struct {
	Policy Policy
	Now    func() time.Time
}

// NewSelector returns a selector on the wall clock.
func NewSelector(policy Policy) *Selector {
	return &Selector{Policy: policy, Now: time.Now}
}

var defaultSelector = NewSelector(DefaultPolicy())

// SuggestPrimary picks the primary lead using the default policy.
func SuggestPrimary(group []leads.Lead) (leads.Lead, error) {
	return defaultSelector.SuggestPrimary(group)
}

// SuggestPrimary returns the highest ranked lead. A single lead is returned
// as is; ties go to the earliest lead in group.
func (s *Selector) SuggestPrimary(group []leads.Lead) (leads.Lead, error) {
	switch len(group) {
	case 0:
		return leads.Lead{}, ErrEmptyInput
	case 1:
		return group[0], nil
	}
	ranked, err := s.RankLeads(group)
	if err != nil {
		return leads.Lead{}, err
	}
	return ranked[0].Lead, nil
}

// RankLeads scores every lead and orders them best first with a stable sort.
func (s *Selector) RankLeads(group []leads.Lead) ([]RankedLead, error) {
	if len(group) == 0 {
		return nil, ErrEmptyInput
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	ranked := make([]RankedLead, len(group))
	for i, l := range group {
		r := RankedLead{
			Lead:         l,
			Completeness: completeness(&l),
			Recency:      s.recency(l.CreatedAt, now),
			Activity:     activity(&l),
		}
		r.Score = r.Completeness + r.Recency + r.Activity
		ranked[i] = r
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

func completeness(l *leads.Lead) float64 {
	var score float64
	add := func(ok bool, pts float64) {
		if ok {
			score += pts
		}
	}
	add(present(l.FirstName), 1)
	add(present(l.LastName), 1)
	add(l.HasPhone(), 2)
	add(present(l.Email), 1)
	add(present(l.Address.Street), 1)
	add(present(l.Address.City), 1)
	add(present(l.Address.State), 1)
	add(present(l.Property.Type), 1)
	add(l.Property.EstimatedValue != nil, 1)
	add(present(l.LeadSource), 0.5)
	add(len(l.Tags) > 0, 0.5)
	return score
}

// recency decays linearly from 1 at creation to 0 at the end of the window.
// An unknown creation time contributes nothing.
func (s *Selector) recency(created, now time.Time) float64 {
	window := s.Policy.RecencyWindow
	if created.IsZero() || window <= 0 {
		return 0
	}
	age := now.Sub(created)
	r := float64(window-age) / float64(window)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

func activity(l *leads.Lead) float64 {
	var score float64
	if l.Status != "" && l.Status != leads.StatusNew {
		score++
	}
	switch l.Score {
	case leads.ScoreHot:
		score += 2
	case leads.ScoreWarm:
		score++
	}
	return score
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
