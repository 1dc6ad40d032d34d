package intent

import "testing"

func TestAnalyzeOrdersQuestion(t *testing.T) {
	decision := Analyze("How many orders were shipped last week?")
	if decision.Topic != Orders {
		t.Fatalf("expected orders topic, got %s", decision.Topic)
	}
	if decision.Score < 6 {
		t.Fatalf("expected both order keywords to score, got %d", decision.Score)
	}
}

func TestAnalyzeRevenueSuperlativeBoost(t *testing.T) {
	decision := Analyze("Which books had the highest sales?")
	if decision.Topic != Revenue {
		t.Fatalf("expected revenue topic, got %s", decision.Topic)
	}
	if len(decision.Ranked) == 0 || decision.Ranked[0] != Books {
		t.Fatalf("expected books as runner-up, got %v", decision.Ranked)
	}
}

func TestAnalyzeMatchesWholeWordsOnly(t *testing.T) {
	decision := Analyze("Tell me about the bookkeeping rules")
	if decision.Topic != General {
		t.Fatalf("expected general topic, got %s", decision.Topic)
	}
}

func TestAnalyzeEmptyQuestion(t *testing.T) {
	decision := Analyze("   ")
	if decision.Topic != General || decision.Score != 0 {
		t.Fatalf("expected neutral decision, got %+v", decision)
	}
}
