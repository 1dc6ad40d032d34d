package qa

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCannedAnswerForKnownTopic(t *testing.T) {
	var steps []string
	answer, err := NewCanned().Answer(context.Background(), "Which books had the highest sales?", func(step string) {
		steps = append(steps, step)
	})
	if err != nil {
		t.Fatalf("Answer err: %v", err)
	}

	if len(steps) != 3 {
		t.Fatalf("expected 3 progress steps, got %v", steps)
	}
	if !strings.Contains(answer.Text, "**$48,215.40**") {
		t.Fatalf("expected revenue summary, got %q", answer.Text)
	}
	if answer.SQLQuery == "" || answer.QueryResult == "" {
		t.Fatalf("expected sql and preview, got %+v", answer)
	}

	last := answer.SuggestedQuestions[len(answer.SuggestedQuestions)-1]
	if last != templates["books"].followUps[0] {
		t.Fatalf("expected runner-up follow-up, got %q", last)
	}
}

func TestCannedAnswerFallsBackForUnknownQuestion(t *testing.T) {
	var steps int
	answer, err := NewCanned().Answer(context.Background(), "  what's the weather?  ", func(string) { steps++ })
	if err != nil {
		t.Fatalf("Answer err: %v", err)
	}

	if steps != 1 {
		t.Fatalf("expected a single progress step, got %d", steps)
	}
	if answer.SQLQuery != "" {
		t.Fatalf("expected no sql, got %q", answer.SQLQuery)
	}
	if !strings.Contains(answer.Text, `"what's the weather?"`) {
		t.Fatalf("expected trimmed question in fallback, got %q", answer.Text)
	}
	if len(answer.SuggestedQuestions) == 0 {
		t.Fatal("expected suggested questions")
	}
}

func TestCannedAnswerWithoutProgress(t *testing.T) {
	if _, err := NewCanned().Answer(context.Background(), "How many customers do we have?", nil); err != nil {
		t.Fatalf("Answer err: %v", err)
	}
}

func TestCannedAnswerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCanned().Answer(ctx, "How many books?", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
