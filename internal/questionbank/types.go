// Package questionbank maintains the pool of candidate interview questions
// and picks the next one to ask.
package questionbank

// Source records where a question came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
	SourceOpening   Source = "opening"
)

// Question is a candidate prompt for the interviewer.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Category      string   `json:"category"`
	Keywords      []string `json:"keywords,omitempty"`
	RelatedTopics []string `json:"related_topics,omitempty"`

	// Priority orders untargeted selection; lower is asked sooner.
	Priority int    `json:"priority"`
	Used     bool   `json:"used"`
	Batch    int    `json:"batch"`
	Source   Source `json:"source"`
}

// Clone returns a deep copy of pool.
func Clone(pool []Question) []Question {
	if pool == nil {
		return nil
	}
	out := make([]Question, len(pool))
	for i, q := range pool {
		q.Keywords = append([]string(nil), q.Keywords...)
		q.RelatedTopics = append([]string(nil), q.RelatedTopics...)
		out[i] = q
	}
	return out
}

// Unused counts questions that have not been asked.
func Unused(pool []Question) int {
	n := 0
	for _, q := range pool {
		if !q.Used {
			n++
		}
	}
	return n
}

// Texts returns the text of every question in pool.
func Texts(pool []Question) []string {
	out := make([]string, len(pool))
	for i, q := range pool {
		out[i] = q.Text
	}
	return out
}
