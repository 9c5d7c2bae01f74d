package questionbank

import (
	"strings"

	"github.com/abhisek/viva/internal/coverage"
)

// Selection is the question chosen by Select.
type Selection struct {
	// Index is the position of Question in the pool.
	Index    int
	Question Question

	// TopicID is the required topic the question targets, empty when the
	// choice fell back to priority order.
	TopicID string
}

// Select picks the next unused question. Required topics that are not yet
// thoroughly covered are visited in order; the first unused question
// related to one of them wins. Otherwise the unused question with the
// lowest priority is returned, ties going to pool order. ok is false when
// the pool has no unused question.
func Select(pool []Question, topics []coverage.Topic) (sel Selection, ok bool) {
	for _, t := range coverage.Uncovered(topics) {
		for i, q := range pool {
			if q.Used {
				continue
			}
			if targets(q, t) {
				return Selection{Index: i, Question: q, TopicID: t.ID}, true
			}
		}
	}

	best := -1
	for i, q := range pool {
		if q.Used {
			continue
		}
		if best < 0 || q.Priority < pool[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return Selection{}, false
	}
	return Selection{Index: best, Question: pool[best]}, true
}

// MarkUsed flags the question with id as used. It reports whether the id
// was found.
func MarkUsed(pool []Question, id string) bool {
	for i := range pool {
		if pool[i].ID == id {
			pool[i].Used = true
			return true
		}
	}
	return false
}

func targets(q Question, t coverage.Topic) bool {
	for _, id := range q.RelatedTopics {
		if id == t.ID {
			return true
		}
	}
	for _, qk := range q.Keywords {
		for _, tk := range t.Keywords {
			if strings.EqualFold(qk, tk) {
				return true
			}
		}
	}
	return false
}
