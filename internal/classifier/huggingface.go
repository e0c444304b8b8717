package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultLabels is the id2label mapping of ealvaradob/bert-finetuned-phishing.
var DefaultLabels = []string{"benign", "phishing"}

// HuggingFace scores texts against a text-classification inference endpoint.
type HuggingFace struct {
	endpoint string
	apiKey   string
	labels   []string
	client   *http.Client
}

type classScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHuggingFace builds a scorer. labels maps class index to the model's class
// name: index 0 is the benign class and index 1 the phishing class.
func NewHuggingFace(endpoint, apiKey string, labels []string, timeout time.Duration) *HuggingFace {
	if len(labels) != 2 {
		labels = DefaultLabels
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HuggingFace{
		endpoint: endpoint,
		apiKey:   apiKey,
		labels:   labels,
		client:   &http.Client{Timeout: timeout},
	}
}

func (h *HuggingFace) Score(ctx context.Context, texts []string) ([]ScorePair, error) {
	body, err := json.Marshal(map[string]any{
		"inputs":     texts,
		"parameters": map[string]any{"top_k": 2},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference error: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var batch [][]classScore
	if err := json.Unmarshal(raw, &batch); err != nil {
		var single []classScore
		if err2 := json.Unmarshal(raw, &single); err2 != nil || len(texts) != 1 {
			return nil, fmt.Errorf("decode inference response: %w", err)
		}
		batch = [][]classScore{single}
	}

	pairs := make([]ScorePair, len(batch))
	for i, scores := range batch {
		p, err := h.pair(scores)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		pairs[i] = p
	}
	return pairs, nil
}

// pair folds per-class scores into a distribution. A missing class is the
// complement of the one returned.
func (h *HuggingFace) pair(scores []classScore) (ScorePair, error) {
	var benign, phishing *float64
	for _, s := range scores {
		score := s.Score
		switch h.classOf(s.Label) {
		case LabelBenign:
			benign = &score
		case LabelPhishing:
			phishing = &score
		default:
			return ScorePair{}, fmt.Errorf("unknown class %q", s.Label)
		}
	}

	switch {
	case benign != nil && phishing != nil:
		return ScorePair{Benign: *benign, Phishing: *phishing}, nil
	case benign != nil:
		return ScorePair{Benign: *benign, Phishing: 1 - *benign}, nil
	case phishing != nil:
		return ScorePair{Benign: 1 - *phishing, Phishing: *phishing}, nil
	default:
		return ScorePair{}, fmt.Errorf("%w: no class scores", ErrInvalidDistribution)
	}
}

func (h *HuggingFace) classOf(name string) Label {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case strings.ToLower(h.labels[0]), "label_0":
		return LabelBenign
	case strings.ToLower(h.labels[1]), "label_1":
		return LabelPhishing
	}
	return NormalizeLabel(n)
}
