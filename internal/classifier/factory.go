package classifier

import (
	"fmt"

	"chatguard/internal/config"
)

// New builds the configured backend and its inference client. The result is
// meant to be built once at startup and shared.
func New(cfg config.ClassifierConfig) (Labeler, error) {
	switch cfg.Backend {
	case config.BackendScore:
		s := cfg.Score
		return NewScoreBackend(
			NewHuggingFace(s.Endpoint, s.APIKey, s.Labels, s.Timeout),
			s.ConfidenceThreshold,
		), nil
	case config.BackendGenerative:
		g := cfg.Generative
		return NewGenerativeBackend(
			NewOpenRouter(g.APIKey, g.Model, g.BaseURL, g.Timeout),
			Thresholds{Confidence: g.ConfidenceThreshold, PhishingAbsolute: g.PhishingAbsoluteThreshold},
			g.Workers,
		), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}

// Namespace identifies the configured decision behaviour for verdict caching.
func Namespace(cfg config.ClassifierConfig) string {
	switch cfg.Backend {
	case config.BackendScore:
		return fmt.Sprintf("verdict:score:%v", cfg.Score.ConfidenceThreshold)
	default:
		g := cfg.Generative
		return fmt.Sprintf("verdict:generative:%s:%v:%v", g.Model, g.ConfidenceThreshold, g.PhishingAbsoluteThreshold)
	}
}
