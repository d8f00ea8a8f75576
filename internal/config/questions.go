package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/pathfinder/internal/interview"
)

//go:embed questions.yaml
var defaultQuestions []byte

type questionBank struct {
	Questions []questionEntry `yaml:"questions"`
}

type questionEntry struct {
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
}

// LoadQuestions reads the question bank from path, or the embedded default
// bank when path is empty.
func LoadQuestions(path string) ([]interview.Question, error) {
	data := defaultQuestions
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read questions %s: %w", path, err)
		}
		data = raw
	}
	return ParseQuestions(data)
}

// ParseQuestions decodes and validates a YAML question bank.
func ParseQuestions(data []byte) ([]interview.Question, error) {
	var bank questionBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	if len(bank.Questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}

	out := make([]interview.Question, 0, len(bank.Questions))
	for i, q := range bank.Questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			return nil, fmt.Errorf("question %d has no text", i+1)
		}
		cat := interview.Category(strings.ToUpper(strings.TrimSpace(q.Category)))
		if !cat.Valid() {
			return nil, fmt.Errorf("question %d has unknown category %q", i+1, q.Category)
		}
		out = append(out, interview.Question{Index: i, Text: text, Category: cat})
	}
	return out, nil
}
