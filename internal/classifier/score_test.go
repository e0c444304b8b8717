package classifier

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScorer returns a fixed pair per text, in input order.
type fakeScorer struct {
	pairs map[string]ScorePair
	err   error
	calls int
	extra int
}

func (f *fakeScorer) Score(_ context.Context, texts []string) ([]ScorePair, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ScorePair, 0, len(texts)+f.extra)
	for _, t := range texts {
		p, ok := f.pairs[t]
		if !ok {
			p = ScorePair{Benign: 1}
		}
		out = append(out, p)
	}
	for i := 0; i < f.extra; i++ {
		out = append(out, ScorePair{Benign: 1})
	}
	return out, nil
}

func TestScoreBackend_Label(t *testing.T) {
	scorer := &fakeScorer{pairs: map[string]ScorePair{
		"free skins at http://steam-gift.ru": {Benign: 0.00001, Phishing: 0.99999},
		"gg":                                 {Benign: 0.99999, Phishing: 0.00001},
		"is this link safe?":                 {Benign: 0.6, Phishing: 0.4},
	}}
	b := NewScoreBackend(scorer, 0.9999)

	got, err := b.Label(context.Background(), []string{"free skins at http://steam-gift.ru", "gg", "is this link safe?", ""})
	require.NoError(t, err)

	assert.Equal(t, []Verdict{
		{Label: LabelPhishing, PhishingScore: 0.99999},
		{Label: LabelBenign, PhishingScore: 0.00001},
		{Label: LabelUncertain, PhishingScore: 0.4},
		{Label: LabelBenign, PhishingScore: 0},
	}, got)
	assert.Equal(t, 1, scorer.calls, "texts are scored in one batch")
}

func TestScoreBackend_PhishingScoreIsNeverTheComplement(t *testing.T) {
	pairs := []ScorePair{{0.9, 0.1}, {0.1, 0.9}, {0.5, 0.5}, {0, 1}, {1, 0}, {0.73, 0.27}}
	for _, p := range pairs {
		scorer := &fakeScorer{pairs: map[string]ScorePair{"x": p}}
		got, err := NewScoreBackend(scorer, 0.8).Label(context.Background(), []string{"x"})
		require.NoError(t, err)
		assert.Equal(t, p.Phishing, got[0].PhishingScore)
	}
}

func TestScoreBackend_Idempotent(t *testing.T) {
	scorer := &fakeScorer{pairs: map[string]ScorePair{"a": {0.2, 0.8}, "b": {0.99, 0.01}}}
	b := NewScoreBackend(scorer, 0.95)

	first, err := b.Label(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	second, err := b.Label(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScoreBackend_Empty(t *testing.T) {
	scorer := &fakeScorer{}
	got, err := NewScoreBackend(scorer, 0.9).Label(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, scorer.calls)
}

func TestScoreBackend_Errors(t *testing.T) {
	boom := errors.New("cuda out of memory")

	_, err := NewScoreBackend(&fakeScorer{err: boom}, 0.9).Label(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)

	_, err = NewScoreBackend(&fakeScorer{extra: 1}, 0.9).Label(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrScoreCount)

	bad := &fakeScorer{pairs: map[string]ScorePair{"a": {0.7, 0.7}}}
	_, err = NewScoreBackend(bad, 0.9).Label(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	nan := &fakeScorer{pairs: map[string]ScorePair{"a": {math.NaN(), 1}}}
	_, err = NewScoreBackend(nan, 0.9).Label(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestScoreBackend_ClampsRoundingError(t *testing.T) {
	scorer := &fakeScorer{pairs: map[string]ScorePair{
		"a": {0, 1.0000001},
		"b": {1.0000002, -0.0000002},
	}}
	got, err := NewScoreBackend(scorer, DefaultScoreConfidenceThreshold).Label(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []Verdict{
		{Label: LabelPhishing, PhishingScore: 1},
		{Label: LabelBenign, PhishingScore: 0},
	}, got)
}

func TestLabelOne(t *testing.T) {
	scorer := &fakeScorer{pairs: map[string]ScorePair{"a": {0.001, 0.999}}}
	v, err := LabelOne(context.Background(), NewScoreBackend(scorer, 0.99), "a")
	require.NoError(t, err)
	assert.Equal(t, Verdict{Label: LabelPhishing, PhishingScore: 0.999}, v)
}
