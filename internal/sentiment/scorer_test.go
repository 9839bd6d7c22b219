package sentiment

import "testing"

func TestScoreBounds(t *testing.T) {
	s := NewScorer()
	texts := []string{
		"Shares surge on record high as earnings beat expectations",
		"Stock plunges amid fraud investigation and selloff",
		"Quarterly report released on Tuesday",
		"Strong rally despite recession concern and layoff warning",
	}
	for _, txt := range texts {
		got := s.Score(txt)
		if got < -1 || got > 1 {
			t.Errorf("Score(%q) = %f, out of [-1,1]", txt, got)
		}
	}
}

func TestScoreDirection(t *testing.T) {
	s := NewScorer()

	if got := s.Score("shares rally and surge to a record high"); got <= 0 {
		t.Errorf("bullish text scored %f, want > 0", got)
	}
	if got := s.Score("stock crash triggers selloff and bankruptcy fears"); got >= 0 {
		t.Errorf("bearish text scored %f, want < 0", got)
	}
}

func TestScoreNeutral(t *testing.T) {
	s := NewScorer()
	if got := s.Score("the company held its annual meeting"); got != 0 {
		t.Errorf("neutral text scored %f, want 0", got)
	}
	if got := s.Score(""); got != 0 {
		t.Errorf("empty text scored %f, want 0", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer()
	text := "strong growth and dividend but weak guidance miss"
	first := s.Score(text)
	for i := 0; i < 5; i++ {
		if got := s.Score(text); got != first {
			t.Fatalf("score not deterministic: %f vs %f", got, first)
		}
	}
}
