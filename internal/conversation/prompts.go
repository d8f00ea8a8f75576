package conversation

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/pathfinder/internal/interview"
)

// WelcomeMessage opens every transcript.
const WelcomeMessage = "Hi! I'm your SRJC Pathways assistant. How can I help you today? TYPE 'explore careers' to start our questionnaire and help me choose the pathway and career that's best for you"

const styleGuide = `You're texting with a student about SRJC programs and careers.
Reply in 1 to 3 short text blocks separated by ` + FragmentDelimiter + `.
Each block is at most 2 sentences. Be casual, use an emoji or two, **bold** the important words and *italicize* for emphasis.`

const interviewIntro = `The student is answering a short interest questionnaire. Each answer is a rating from 1 to 5.

Conversation so far:
`

const wrapUpInstruction = `That was the last question. React to their answer, then suggest SRJC programs that fit what they told you.`

const queryTemplate = `%s

Student question: %s

Response:`

// interviewPrompt builds the context prompt for an in-progress interview.
// history includes the answer being responded to.
func interviewPrompt(history []interview.Answer, next *interview.Question) string {
	var b strings.Builder
	b.WriteString(styleGuide)
	b.WriteString("\n\n")
	b.WriteString(interviewIntro)
	for i, a := range history {
		fmt.Fprintf(&b, "Q%d: %s\nUser: %s\n", i+1, a.Question.Text, a.Raw)
	}
	b.WriteString("\n")
	if next != nil {
		fmt.Fprintf(&b, "React to their last answer, then ask exactly: %q", next.Text)
	} else {
		b.WriteString(wrapUpInstruction)
	}
	return b.String()
}

// queryPrompt builds the single-turn prompt for a free-form question.
func queryPrompt(text string) string {
	return fmt.Sprintf(queryTemplate, styleGuide, text)
}
