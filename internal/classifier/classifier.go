package classifier

import (
	"context"
	"errors"
)

type Label string

const (
	LabelPhishing  Label = "phishing"
	LabelBenign    Label = "benign"
	LabelUncertain Label = "uncertain"
)

var (
	ErrEmptyBatch          = errors.New("no texts to label")
	ErrScoreCount          = errors.New("scorer returned wrong number of scores")
	ErrInvalidDistribution = errors.New("scores do not form a probability distribution")
)

// Verdict is the only result handed to callers. PhishingScore is always the
// probability of phishing, whichever backend produced it.
type Verdict struct {
	Label         Label   `json:"label" yaml:"label"`
	PhishingScore float64 `json:"phishing_score" yaml:"phishing_score"`
}

// Labeler returns one verdict per text, in input order.
type Labeler interface {
	Label(ctx context.Context, texts []string) ([]Verdict, error)
}

// LabelOne labels a single text as a batch of one.
func LabelOne(ctx context.Context, l Labeler, text string) (Verdict, error) {
	verdicts, err := l.Label(ctx, []string{text})
	if err != nil {
		return Verdict{}, err
	}
	if len(verdicts) != 1 {
		return Verdict{}, ErrScoreCount
	}
	return verdicts[0], nil
}

// ScorePair is a two-class probability distribution from a sequence classifier.
type ScorePair struct {
	Benign   float64
	Phishing float64
}

type Scorer interface {
	Score(ctx context.Context, texts []string) ([]ScorePair, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
