package qa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"annotation-judge/internal/db"
)

var errEmptyResponse = errors.New("no response content from model")

type judgeResponse struct {
	Verdict   *string `json:"verdict"`
	Reasoning *string `json:"reasoning"`
}

// ParseVerdict validates a model response and returns the lower-cased
// verdict with its reasoning.
func ParseVerdict(content string) (verdict, reasoning string, err error) {
	body := stripFence(content)
	if body == "" {
		return "", "", errEmptyResponse
	}
	var resp judgeResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", "", fmt.Errorf("malformed judge response: %w", err)
	}
	if resp.Verdict == nil {
		return "", "", errors.New("judge response has no verdict")
	}
	if resp.Reasoning == nil || *resp.Reasoning == "" {
		return "", "", errors.New("judge response has no reasoning")
	}
	verdict = strings.ToLower(*resp.Verdict)
	if !db.ValidVerdict(verdict) {
		return "", "", fmt.Errorf("unexpected verdict: %s", *resp.Verdict)
	}
	return verdict, *resp.Reasoning, nil
}

// stripFence unwraps a response the model wrapped in a markdown code block.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimSuffix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	return strings.TrimSpace(s)
}
