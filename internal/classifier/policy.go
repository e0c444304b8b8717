package classifier

import (
	"math"
	"strings"
)

const (
	DefaultScoreConfidenceThreshold      = 0.99997
	DefaultGenerativeConfidenceThreshold = 0.9
	DefaultPhishingAbsoluteThreshold     = 0.99

	distributionTolerance = 1e-3
)

var synonyms = map[string]Label{
	"phishing": LabelPhishing,
	"fraud":    LabelPhishing,
	"scam":     LabelPhishing,

	"benign":       LabelBenign,
	"legit":        LabelBenign,
	"legitimate":   LabelBenign,
	"not_phishing": LabelBenign,
	"not phishing": LabelBenign,
	"ham":          LabelBenign,
	"safe":         LabelBenign,

	"uncertain":   LabelUncertain,
	"unsure":      LabelUncertain,
	"unknown":     LabelUncertain,
	"cannot_tell": LabelUncertain,
	"cant_tell":   LabelUncertain,
	"can't_tell":  LabelUncertain,
}

// NormalizeLabel maps a model label onto the closed label set. Anything not in
// the synonym table is uncertain.
func NormalizeLabel(raw string) Label {
	if l, ok := synonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return l
	}
	return LabelUncertain
}

// Clamp01 bounds v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Thresholds configures the asymmetric policy used for generated judgments.
type Thresholds struct {
	// Confidence is the minimum 1-score needed to call a message benign.
	Confidence float64
	// PhishingAbsolute is the minimum score needed to call a message phishing.
	PhishingAbsolute float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Confidence:       DefaultGenerativeConfidenceThreshold,
		PhishingAbsolute: DefaultPhishingAbsoluteThreshold,
	}
}

// DecideJudgment applies the dual threshold to a normalized label and a
// phishing score. A phishing claim needs near-certainty, a benign claim only
// high confidence; everything else is uncertain.
func DecideJudgment(label Label, score float64, t Thresholds) Verdict {
	score = Clamp01(score)
	final := LabelUncertain
	switch {
	case label == LabelPhishing && score >= t.PhishingAbsolute:
		final = LabelPhishing
	case label == LabelBenign && 1-score >= t.Confidence:
		final = LabelBenign
	}
	return Verdict{Label: final, PhishingScore: score}
}

// DecideScore applies the single confidence threshold to a classifier
// distribution. Ties go to benign.
func DecideScore(p ScorePair, confidenceThreshold float64) Verdict {
	raw, confidence := LabelBenign, p.Benign
	if p.Phishing > p.Benign {
		raw, confidence = LabelPhishing, p.Phishing
	}
	if confidence < confidenceThreshold {
		raw = LabelUncertain
	}
	return Verdict{Label: raw, PhishingScore: p.Phishing}
}

// validPair accepts components that miss [0,1] or a sum of 1 by float
// rounding. Callers clamp with clampPair.
func validPair(p ScorePair) bool {
	if math.IsNaN(p.Benign) || math.IsNaN(p.Phishing) {
		return false
	}
	if !nearUnit(p.Benign) || !nearUnit(p.Phishing) {
		return false
	}
	return math.Abs(p.Benign+p.Phishing-1) <= distributionTolerance
}

func nearUnit(v float64) bool {
	return v >= -distributionTolerance && v <= 1+distributionTolerance
}

func clampPair(p ScorePair) ScorePair {
	return ScorePair{Benign: Clamp01(p.Benign), Phishing: Clamp01(p.Phishing)}
}
