package interview

import "time"

// Category is a single-letter RIASEC interest dimension.
type Category string

const (
	Realistic     Category = "R"
	Investigative Category = "I"
	Artistic      Category = "A"
	Social        Category = "S"
	Enterprising  Category = "E"
	Conventional  Category = "C"
)

// Categories lists the alphabet in canonical RIASEC order.
var Categories = []Category{Realistic, Investigative, Artistic, Social, Enterprising, Conventional}

func (c Category) Valid() bool {
	switch c {
	case Realistic, Investigative, Artistic, Social, Enterprising, Conventional:
		return true
	default:
		return false
	}
}

// Question is one immutable entry of the question bank.
type Question struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	Category Category `json:"category"`
}

// Answer is one recorded turn of an interview.
type Answer struct {
	Question Question `json:"question"`
	Raw      string   `json:"raw_answer"`
	Score    int      `json:"parsed_score"`
}

// Session is the turn-by-turn state of one interview. Only the Engine mutates it.
type Session struct {
	SessionID string
	Index     int
	Active    bool
	StartedAt time.Time
	History   []Answer
}

// StepResult describes the outcome of one answered question.
type StepResult struct {
	Finished bool
	Next     *Question
	History  []Answer

	// ResultCode is set on the final step when finalization succeeded.
	ResultCode string

	// Persisted reports whether this step's score reached the store.
	Persisted bool

	// Warnings carries non-fatal persistence failures for this step.
	Warnings []error
}
