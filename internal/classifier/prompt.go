package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// BuildPrompt renders the classification prompt for one chat message. The
// output depends only on the message.
func BuildPrompt(message string) string {
	return fmt.Sprintf(`You are a fraud detection classifier.

Classify the following chat message as "phishing", "uncertain", or "benign".
Also give a score between 0 and 1 indicating your confidence that it is phishing:
- 1 means definitely phishing
- 0 means definitely benign

Respond ONLY with a single JSON object of the form:
{"label": "phishing" or "uncertain" or "benign", "score": <float between 0 and 1>}

Message: %s

JSON:
`, quote(message))
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Sprintf("%q", s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
