package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// GenerativeBackend labels texts by prompting a language model for a JSON
// judgment and applying the dual threshold to it.
type GenerativeBackend struct {
	gen        Generator
	thresholds Thresholds
	workers    int
}

func NewGenerativeBackend(g Generator, t Thresholds, workers int) *GenerativeBackend {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &GenerativeBackend{gen: g, thresholds: t, workers: workers}
}

func (b *GenerativeBackend) Label(ctx context.Context, texts []string) ([]Verdict, error) {
	verdicts := make([]Verdict, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, text := range texts {
		g.Go(func() error {
			v, err := b.labelOne(ctx, text)
			if err != nil {
				return fmt.Errorf("generate text %d: %w", i, err)
			}
			verdicts[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

func (b *GenerativeBackend) labelOne(ctx context.Context, text string) (Verdict, error) {
	out, err := b.gen.Generate(ctx, BuildPrompt(text))
	if err != nil {
		return Verdict{}, err
	}
	return b.decide(out), nil
}

func (b *GenerativeBackend) decide(output string) Verdict {
	j, ok := Extract(output)
	if !ok {
		slog.Debug("unparseable judgment", "output", truncate(output, 80))
		return Verdict{Label: LabelUncertain, PhishingScore: 0}
	}
	return DecideJudgment(NormalizeLabel(j.Label), j.Score, b.thresholds)
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
