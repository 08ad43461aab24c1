package domain

import (
	"errors"
	"testing"
)

func TestGenerationFromAge(t *testing.T) {
	tests := []struct {
		age  int
		want Generation
	}{
		{age: 18, want: GenZ},
		{age: 28, want: GenZ},
		{age: 29, want: GenY},
		{age: 32, want: GenY},
		{age: 44, want: GenY},
		{age: 45, want: GenX},
		{age: 60, want: GenX},
	}

	for _, tt := range tests {
		if got := GenerationFromAge(tt.age); got != tt.want {
			t.Errorf("age=%d: 期待値 %q, 実際の値 %q", tt.age, tt.want, got)
		}
	}
}

func TestNewUserProfile(t *testing.T) {
	t.Run("32歳は Gen Y になるのだ", func(t *testing.T) {
		p, err := NewUserProfile("  Budi ", 32, GenderMale, "ASN")
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if p.Generation != GenY {
			t.Errorf("期待値 %q, 実際の値 %q", GenY, p.Generation)
		}
		if p.Nickname != "Budi" {
			t.Errorf("ニックネームがトリムされていないのだ: %q", p.Nickname)
		}
	})

	t.Run("不正な入力は ValidationError になること", func(t *testing.T) {
		cases := []struct {
			name     string
			nickname string
			age      int
			gender   Gender
		}{
			{"空のニックネーム", " ", 30, GenderFemale},
			{"年齢ゼロ", "Sari", 0, GenderFemale},
			{"不明な性別", "Sari", 30, Gender("Other")},
		}
		for _, c := range cases {
			_, err := NewUserProfile(c.nickname, c.age, c.gender, "Guru")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("%s: ValidationError を期待したのだ, 実際: %v", c.name, err)
				continue
			}
			if RecoveryFor(err) != RecoveryFixInput {
				t.Errorf("%s: 回復手段が違うのだ: %q", c.name, RecoveryFor(err))
			}
		}
	})
}

func TestParseGender(t *testing.T) {
	if g, err := ParseGender("female"); err != nil || g != GenderFemale {
		t.Errorf("female の解析に失敗したのだ: %v %v", g, err)
	}
	if g, err := ParseGender("Laki-laki"); err != nil || g != GenderMale {
		t.Errorf("Laki-laki の解析に失敗したのだ: %v %v", g, err)
	}
	if _, err := ParseGender("robot"); err == nil {
		t.Error("不明な性別でエラーが発生しませんでした")
	}
}

func TestAnswerSet(t *testing.T) {
	qs := Questions{
		{ID: 1, Text: "Q1", Type: QuestionMCQ, Category: "Energy Pattern", Options: []string{"A", "B"}},
		{ID: 2, Text: "Q2", Type: QuestionText, Category: "Resilience"},
	}
	answers := AnswerSet{}

	if err := answers.Set(qs, 1, "C"); err == nil {
		t.Error("選択肢にない回答が受け入れられたのだ")
	}
	if err := answers.Set(qs, 99, "A"); err == nil {
		t.Error("存在しない設問への回答が受け入れられたのだ")
	}
	if err := answers.Set(qs, 1, "A"); err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	if answers.Complete(qs) {
		t.Error("未回答があるのに Complete が true なのだ")
	}
	if got := answers.Missing(qs); len(got) != 1 || got[0] != 2 {
		t.Errorf("未回答IDが違うのだ: %v", got)
	}
	if err := answers.Set(qs, 2, "bebas saja"); err != nil {
		t.Fatalf("自由記述の回答でエラーなのだ: %v", err)
	}
	if !answers.Complete(qs) {
		t.Error("すべて回答済みなのに Complete が false なのだ")
	}
}
