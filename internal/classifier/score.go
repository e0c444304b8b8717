package classifier

import (
	"context"
	"fmt"
)

// ScoreBackend labels texts from a two-class sequence classifier.
type ScoreBackend struct {
	scorer    Scorer
	threshold float64
}

func NewScoreBackend(s Scorer, confidenceThreshold float64) *ScoreBackend {
	return &ScoreBackend{scorer: s, threshold: confidenceThreshold}
}

func (b *ScoreBackend) Label(ctx context.Context, texts []string) ([]Verdict, error) {
	if len(texts) == 0 {
		return []Verdict{}, nil
	}

	pairs, err := b.scorer.Score(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	if len(pairs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrScoreCount, len(pairs), len(texts))
	}

	verdicts := make([]Verdict, len(pairs))
	for i, p := range pairs {
		if !validPair(p) {
			return nil, fmt.Errorf("%w: text %d: benign=%v phishing=%v", ErrInvalidDistribution, i, p.Benign, p.Phishing)
		}
		verdicts[i] = DecideScore(clampPair(p), b.threshold)
	}
	return verdicts, nil
}
