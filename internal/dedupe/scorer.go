package dedupe

import (
	"fmt"
	"math"

	"github.com/wolfman30/landlead-crm/internal/leads"
)

const (
	ReasonPhone = "Exact phone number match"
	ReasonEmail = "Exact email address match"
)

// PairScore is the outcome of comparing one candidate against a target.
type PairScore struct {
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Scorer combines phone, email, name and address signals for a single pair.
type Scorer struct {
	policy Policy
}

// NewScorer returns a scorer using the given policy.
func NewScorer(policy Policy) *Scorer {
	return &Scorer{policy: policy}
}

// Policy returns the policy the scorer was built with.
func (s *Scorer) Policy() Policy {
	return s.policy
}

// Score compares candidate against target. Each enabled signal adds its weight
// to the confidence and appends a reason; disabled or absent signals add nothing.
func (s *Scorer) Score(target, candidate leads.Lead, opts Options) PairScore {
	var out PairScore

	if opts.EnablePhoneMatch && phonesIntersect(&target, &candidate) {
		out.Confidence += s.policy.PhoneWeight
		out.Reasons = append(out.Reasons, ReasonPhone)
	}

	if opts.EnableEmailMatch {
		te, ce := NormalizeEmail(target.Email), NormalizeEmail(candidate.Email)
		if te != "" && te == ce {
			out.Confidence += s.policy.EmailWeight
			out.Reasons = append(out.Reasons, ReasonEmail)
		}
	}

	if opts.EnableNameAddressMatch {
		s.scoreNameAddress(&target, &candidate, &out)
	}

	return out
}

func (s *Scorer) scoreNameAddress(target, candidate *leads.Lead, out *PairScore) {
	tn, cn := NormalizeName(target.FullName()), NormalizeName(candidate.FullName())
	if tn == "" || cn == "" {
		return
	}
	nameSim := Similarity(tn, cn)
	if nameSim < s.policy.NameGate {
		return
	}
	out.Confidence += nameSim * s.policy.NameWeight
	out.Reasons = append(out.Reasons, fmt.Sprintf("Similar name (%d%% match)", percent(nameSim)))

	ta, ca := addressKey(target.Address), addressKey(candidate.Address)
	if ta == "" || ca == "" {
		return
	}
	addrSim := Similarity(ta, ca)
	if addrSim < s.policy.AddressGate {
		return
	}
	out.Confidence += addrSim * s.policy.AddressWeight
	out.Reasons = append(out.Reasons, fmt.Sprintf("Similar address (%d%% match)", percent(addrSim)))
}

func phonesIntersect(a, b *leads.Lead) bool {
	seen := make(map[string]struct{}, 4)
	for _, p := range a.AllPhones() {
		if n := NormalizePhone(p); n != "" {
			seen[n] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return false
	}
	for _, p := range b.AllPhones() {
		if _, ok := seen[NormalizePhone(p)]; ok {
			return true
		}
	}
	return false
}

func addressKey(a leads.Address) string {
	return NormalizeAddress(a.Street + " " + a.City + " " + a.State)
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
