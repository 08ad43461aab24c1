package domain

// Part は補完リクエストの1要素です。Text かインラインバイナリのどちらかを持ちます。
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// IsInline はバイナリパートかを返すのだ。
func (p Part) IsInline() bool { return len(p.Data) > 0 }

// Payload は PromptBuilder が組み立てるプロバイダ向けのリクエスト本体なのだ。
type Payload struct {
	Parts []Part
	// JSON は構造化 JSON モードで応答させるかどうか
	JSON bool
}

// TextPayload はテキスト1パートだけの Payload を作ります。
func TextPayload(text string, jsonMode bool) Payload {
	return Payload{Parts: []Part{{Text: text}}, JSON: jsonMode}
}

// Text はテキストパートを連結して返すのだ。
func (p Payload) Text() string {
	var s string
	for _, part := range p.Parts {
		if part.IsInline() {
			continue
		}
		if s != "" {
			s += "\n"
		}
		s += part.Text
	}
	return s
}
