package dedupe

import (
	"time"

	"github.com/wolfman30/landlead-crm/internal/leads"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedSelector() *Selector {
	s := NewSelector(DefaultPolicy())
	s.Now = func() time.Time { return fixedNow }
	return s
}

func daysAgo(n int) time.Time {
	return fixedNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }

func lead(id string, mutate ...func(*leads.Lead)) leads.Lead {
	l := leads.Lead{ID: id}
	for _, m := range mutate {
		m(&l)
	}
	return l
}

func withPhone(p string) func(*leads.Lead) {
	return func(l *leads.Lead) { l.PrimaryPhone = p }
}

func withEmail(e string) func(*leads.Lead) {
	return func(l *leads.Lead) { l.Email = e }
}

func withName(first, last string) func(*leads.Lead) {
	return func(l *leads.Lead) { l.FirstName, l.LastName = first, last }
}

func withStreet(street string) func(*leads.Lead) {
	return func(l *leads.Lead) { l.Address.Street = street }
}

func withStatus(s leads.Status) func(*leads.Lead) {
	return func(l *leads.Lead) { l.Status = s }
}

func withTags(tags ...string) func(*leads.Lead) {
	return func(l *leads.Lead) { l.Tags = tags }
}
