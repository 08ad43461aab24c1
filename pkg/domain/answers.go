package domain

import (
	"fmt"
	"sort"
	"strings"
)

// QuestionType は設問の回答形式です。
type QuestionType string

const (
	QuestionMCQ  QuestionType = "mcq"
	QuestionText QuestionType = "text"
)

// Question はクイズの設問定義なのだ。
type Question struct {
	ID       int          `json:"id" yaml:"id"`
	Text     string       `json:"text" yaml:"text"`
	Type     QuestionType `json:"type" yaml:"type"`
	Options  []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Category string       `json:"category" yaml:"category"`
}

// Questions は設問リストです。
type Questions []Question

// ByID は ID で設問を検索します。
func (qs Questions) ByID(id int) (Question, bool) {
	for _, q := range qs {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate は ID の一意性と選択肢の整合性をチェックするのだ。
func (qs Questions) Validate() error {
	seen := make(map[int]struct{}, len(qs))
	for _, q := range qs {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("設問IDが重複しています: %d", q.ID)
		}
		seen[q.ID] = struct{}{}
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("設問 %d の本文が空です", q.ID)
		}
		if q.Type == QuestionMCQ && len(q.Options) == 0 {
			return fmt.Errorf("設問 %d は選択式ですが選択肢がありません", q.ID)
		}
	}
	return nil
}

// AnswerSet は設問IDから回答文字列へのマップです。
// クイズ中に単調に増えていき、合成リクエスト前にすべて埋まります。
type AnswerSet map[int]string

// Set は回答を登録します。同じ設問への再回答は上書きになるのだ。
func (a AnswerSet) Set(qs Questions, id int, value string) error {
	q, ok := qs.ByID(id)
	if !ok {
		return &ValidationError{Field: "answer", Reason: fmt.Sprintf("存在しない設問IDです: %d", id)}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return &ValidationError{Field: "answer", Reason: fmt.Sprintf("設問 %d の回答が空です", id)}
	}
	if q.Type == QuestionMCQ && !containsString(q.Options, value) {
		return &ValidationError{Field: "answer", Reason: fmt.Sprintf("設問 %d の選択肢にない回答です: %q", id, value)}
	}
	a[id] = value
	return nil
}

// Missing は未回答の設問IDを昇順で返すのだ。
func (a AnswerSet) Missing(qs Questions) []int {
	var missing []int
	for _, q := range qs {
		if strings.TrimSpace(a[q.ID]) == "" {
			missing = append(missing, q.ID)
		}
	}
	sort.Ints(missing)
	return missing
}

// Complete はすべての設問に回答済みかを返します。
func (a AnswerSet) Complete(qs Questions) bool {
	return len(a.Missing(qs)) == 0
}

// Clone は防御的コピーを返します。
func (a AnswerSet) Clone() AnswerSet {
	c := make(AnswerSet, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
