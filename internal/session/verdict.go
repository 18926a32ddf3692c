package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ansarzeinulla/prescreen/internal/domain"
)

// ParseVerdict classifies raw evaluator output. It reports a final verdict
// only when the text decodes to a JSON object carrying both a numeric
// final_score and a summary; anything else — prose, broken JSON, an object
// missing either field — is a follow-up question, keeping the conversation
// alive rather than failing the turn.
func ParseVerdict(raw string) (domain.Verdict, bool) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return domain.Verdict{}, false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return domain.Verdict{}, false
	}

	scoreVal, ok := data["final_score"]
	if !ok {
		return domain.Verdict{}, false
	}
	score, ok := coerceScore(scoreVal)
	if !ok {
		return domain.Verdict{}, false
	}

	summaryVal, ok := data["summary"]
	if !ok {
		return domain.Verdict{}, false
	}
	summary, ok := summaryVal.(string)
	if !ok {
		return domain.Verdict{}, false
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return domain.Verdict{
		Score:   score,
		Summary: strings.TrimSpace(summary),
		Reasons: data["reasons"],
	}, true
}

// extractJSON strips the markdown code fences models often wrap JSON in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// coerceScore accepts the numeric shapes models actually emit: JSON numbers
// and numeric strings. Fractional scores round to the nearest integer.
func coerceScore(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int(math.Round(val)), true
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	default:
		return 0, false
	}
}
