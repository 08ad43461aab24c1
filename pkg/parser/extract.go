package parser

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

const excerptLen = 200

// extractJSON は応答文字列から JSON 部分を取り出します。
// open/close には期待する最外殻の括弧を指定するのだ。
func extractJSON(raw string, open, close byte) string {
	raw = strings.TrimSpace(raw)

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// Fallback 1: 最外殻の括弧で囲まれた範囲を探す
	first := strings.IndexByte(raw, open)
	last := strings.LastIndexByte(raw, close)
	if first != -1 && last != -1 && last > first {
		return raw[first : last+1]
	}

	// Fallback 2: 応答全体を JSON とみなす
	return raw
}

// decodeTolerant は json.Unmarshal を試し、失敗したら jsonrepair で修復してからもう一度だけ試すのだ。
func decodeTolerant(rawJSON string, v any) error {
	err := json.Unmarshal([]byte(rawJSON), v)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(rawJSON)
	if repairErr != nil {
		return err
	}
	if retryErr := json.Unmarshal([]byte(repaired), v); retryErr != nil {
		return retryErr
	}
	slog.Debug("AI応答のJSONを修復して解析したのだ", "excerpt", truncateString(rawJSON, 80))
	return nil
}
