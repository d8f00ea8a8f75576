package hermes

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestInterviewAnsweredParsing(t *testing.T) {
	raw := `{
		"session_id": "sess-001",
		"question_index": 2,
		"category": "E",
		"score": 5,
		"persisted": true
	}`

	var ev InterviewAnswered
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("failed to parse InterviewAnswered: %v", err)
	}

	if ev.SessionID != "sess-001" {
		t.Errorf("expected session_id 'sess-001', got '%s'", ev.SessionID)
	}
	if ev.QuestionIndex != 2 {
		t.Errorf("expected question_index 2, got %d", ev.QuestionIndex)
	}
	if ev.Category != "E" {
		t.Errorf("expected category 'E', got '%s'", ev.Category)
	}
	if ev.Score != 5 {
		t.Errorf("expected score 5, got %d", ev.Score)
	}
	if !ev.Persisted {
		t.Error("expected persisted true")
	}
}

func TestInterviewStartedFields(t *testing.T) {
	ev := InterviewStarted{
		SessionID: "sess-rt",
		Questions: 3,
		StartedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if !strings.Contains(string(data), `"started_at":"2025-03-01T12:00:00Z"`) {
		t.Errorf("unexpected payload %s", data)
	}
}

func TestInterviewCompletedOmitsEmptyCode(t *testing.T) {
	data, err := json.Marshal(InterviewCompleted{SessionID: "s", Answers: 3})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "result_code") {
		t.Errorf("expected result_code omitted, got %s", data)
	}
}

func TestSubjectsShareNamespace(t *testing.T) {
	for _, s := range []string{SubjectInterviewStarted, SubjectInterviewAnswered, SubjectInterviewCompleted} {
		if !strings.HasPrefix(s, "pathfinder.interview.") {
			t.Errorf("subject %q outside pathfinder.interview namespace", s)
		}
	}
}
