package parser

import "regexp"

var (
	// jsonBlockRegex は ```json ... ``` 形式のコードブロック本文をキャプチャします。
	jsonBlockRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*\\S)\\s*```")

	// fenceRegex は言語指定つき・なしのコードフェンス行を取り除くためのものなのだ。
	fenceRegex = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
)
