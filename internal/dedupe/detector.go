package dedupe

import "github.com/wolfman30/landlead-crm/internal/leads"

// DuplicateMatch groups a target lead with the candidates judged to be the
// same contact. Reasons describe the best-scoring pair(s) only.
type DuplicateMatch struct {
	Target     leads.Lead   `json:"target"`
	Duplicates []leads.Lead `json:"duplicates"`
	Reasons    []string     `json:"reasons"`
	Confidence float64      `json:"confidence"`
}

// IDs returns the target id followed by every duplicate id.
func (m DuplicateMatch) IDs() []string {
	ids := make([]string, 0, len(m.Duplicates)+1)
	ids = append(ids, m.Target.ID)
	for _, d := range m.Duplicates {
		ids = append(ids, d.ID)
	}
	return ids
}

// Stats reports how much work a detection pass did.
type Stats struct {
	Comparisons int `json:"comparisons"`
	Groups      int `json:"groups"`
}

// Detector applies a Scorer across lead collections. It holds no mutable
// state and is safe for concurrent use.
type Detector struct {
	scorer *Scorer
}

// NewDetector builds a detector for the given policy.
func NewDetector(policy Policy) *Detector {
	return &Detector{scorer: NewScorer(policy)}
}

// Policy returns the detector's scoring policy.
func (d *Detector) Policy() Policy {
	return d.scorer.Policy()
}

// DetectForTarget compares target against every candidate with a different id.
// It returns false when no candidate reaches the threshold.
func (d *Detector) DetectForTarget(target leads.Lead, candidates []leads.Lead, opts Options) (*DuplicateMatch, bool) {
	match, _ := d.detectForTarget(target, candidates, opts)
	return match, match != nil
}

func (d *Detector) detectForTarget(target leads.Lead, candidates []leads.Lead, opts Options) (*DuplicateMatch, int) {
	threshold := d.scorer.policy.ThresholdFor(opts)

	var (
		duplicates  []leads.Lead
		reasons     []string
		best        float64
		comparisons int
	)
	for _, candidate := range candidates {
		if candidate.ID == target.ID {
			continue
		}
		comparisons++
		pair := d.scorer.Score(target, candidate, opts)
		if pair.Confidence < threshold {
			continue
		}
		duplicates = append(duplicates, candidate)
		switch {
		case pair.Confidence > best:
			best = pair.Confidence
			reasons = append([]string(nil), pair.Reasons...)
		case pair.Confidence == best:
			reasons = append(reasons, pair.Reasons...)
		}
	}

	if len(duplicates) == 0 {
		return nil, comparisons
	}
	return &DuplicateMatch{
		Target:     target,
		Duplicates: duplicates,
		Reasons:    uniqueStrings(reasons),
		Confidence: best,
	}, comparisons
}

// DetectAll partitions leads into non-overlapping duplicate groups. Each lead
// is compared only against leads not yet claimed by an earlier group.
func (d *Detector) DetectAll(all []leads.Lead, opts Options) []DuplicateMatch {
	matches, _ := d.DetectAllWithStats(all, opts)
	return matches
}

// DetectAllWithStats is DetectAll that also reports the pair comparison count.
func (d *Detector) DetectAllWithStats(all []leads.Lead, opts Options) ([]DuplicateMatch, Stats) {
	var (
		stats   Stats
		matches []DuplicateMatch
	)
	processed := make(map[string]struct{}, len(all))

	for _, target := range all {
		if _, done := processed[target.ID]; done {
			continue
		}

		remaining := make([]leads.Lead, 0, len(all)-len(processed))
		for _, l := range all {
			if _, done := processed[l.ID]; !done {
				remaining = append(remaining, l)
			}
		}

		match, n := d.detectForTarget(target, remaining, opts)
		stats.Comparisons += n
		processed[target.ID] = struct{}{}
		if match == nil {
			continue
		}
		for _, dup := range match.Duplicates {
			processed[dup.ID] = struct{}{}
		}
		matches = append(matches, *match)
	}

	stats.Groups = len(matches)
	return matches, stats
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
