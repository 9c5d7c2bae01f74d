package coverage

// Status is the coverage bucket of a topic.
type Status string

const (
	NotDiscussed      Status = "not-discussed"
	BrieflyDiscussed  Status = "briefly-discussed"
	ThoroughlyCovered Status = "thoroughly-covered"
)

// Topic is one unit of knowledge an interview probes.
type Topic struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Keywords          []string `json:"keywords"`
	IsRequired        bool     `json:"is_required"`
	CoverageScore     float64  `json:"coverage_score"`
	Status            Status   `json:"status"`
	MentionedKeywords []string `json:"mentioned_keywords,omitempty"`
}

// Thresholds are the coverage score breakpoints for Status.
type Thresholds struct {
	Thorough float64 `koanf:"thorough"`
	Brief    float64 `koanf:"brief"`
}

// DefaultThresholds returns the 60/20 breakpoints.
func DefaultThresholds() Thresholds {
	return Thresholds{Thorough: 60, Brief: 20}
}

// StatusFor buckets a score.
func (t Thresholds) StatusFor(score float64) Status {
	switch {
	case score >= t.Thorough:
		return ThoroughlyCovered
	case score >= t.Brief:
		return BrieflyDiscussed
	default:
		return NotDiscussed
	}
}

// Clone returns a deep copy of topics.
func Clone(topics []Topic) []Topic {
	if topics == nil {
		return nil
	}
	out := make([]Topic, len(topics))
	for i, t := range topics {
		t.Keywords = append([]string(nil), t.Keywords...)
		t.MentionedKeywords = append([]string(nil), t.MentionedKeywords...)
		out[i] = t
	}
	return out
}

// Stats summarizes a topic set for progress reports.
type Stats struct {
	Total             int     `json:"total"`
	Required          int     `json:"required"`
	ThoroughlyCovered int     `json:"thoroughly_covered"`
	BrieflyDiscussed  int     `json:"briefly_discussed"`
	NotDiscussed      int     `json:"not_discussed"`
	RequiredRemaining int     `json:"required_remaining"`
	AverageCoverage   float64 `json:"average_coverage"`
}

// Summary computes Stats over topics.
func Summary(topics []Topic) Stats {
	var s Stats
	var sum float64
	for _, t := range topics {
		s.Total++
		sum += t.CoverageScore
		switch t.Status {
		case ThoroughlyCovered:
			s.ThoroughlyCovered++
		case BrieflyDiscussed:
			s.BrieflyDiscussed++
		default:
			s.NotDiscussed++
		}
		if t.IsRequired {
			s.Required++
			if t.Status != ThoroughlyCovered {
				s.RequiredRemaining++
			}
		}
	}
	if s.Total > 0 {
		s.AverageCoverage = sum / float64(s.Total)
	}
	return s
}

// Uncovered returns required topics that are not thoroughly covered, in
// order.
func Uncovered(topics []Topic) []Topic {
	var out []Topic
	for _, t := range topics {
		if t.IsRequired && t.Status != ThoroughlyCovered {
			out = append(out, t)
		}
	}
	return out
}
