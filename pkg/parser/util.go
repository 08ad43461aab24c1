package parser

import "unicode/utf8"

// truncateString はエラーメッセージ用に応答を切り詰めるのだ。マルチバイト文字の途中では切りません。
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
