package runner

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/export"
)

// scriptedPrompter はあらかじめ決めた応答を順に返す Prompter なのだ。
type scriptedPrompter struct {
	inputs  []string
	selects []int
	labels  []string
}

func (p *scriptedPrompter) Input(label, _ string, validate func(string) error) (string, error) {
	p.labels = append(p.labels, label)
	for len(p.inputs) > 0 {
		v := p.inputs[0]
		p.inputs = p.inputs[1:]
		if validate == nil || validate(v) == nil {
			return v, nil
		}
	}
	return "", ErrAborted
}

func (p *scriptedPrompter) Select(label string, items []string) (int, error) {
	p.labels = append(p.labels, label)
	if len(p.selects) == 0 {
		return 0, ErrAborted
	}
	v := p.selects[0]
	p.selects = p.selects[1:]
	return v, nil
}

func TestIntakeRunner_Run(t *testing.T) {
	p := &scriptedPrompter{
		// "abc" と "0" は年齢の検証で弾かれるのだ
		inputs:  []string{"  Sari ", "abc", "0", "24", "Desainer"},
		selects: []int{1},
	}
	profile, err := NewIntakeRunner(p).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if profile.Nickname != "Sari" || profile.Age != 24 {
		t.Errorf("プロフィールが不正です: %+v", profile)
	}
	if profile.Gender != domain.GenderFemale {
		t.Errorf("Gender = %q, want %q", profile.Gender, domain.GenderFemale)
	}
	if profile.Generation != domain.GenZ {
		t.Errorf("Generation = %q, want %q", profile.Generation, domain.GenZ)
	}
}

func TestIntakeRunner_Aborted(t *testing.T) {
	_, err := NewIntakeRunner(&scriptedPrompter{}).Run()
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("ErrAborted を期待しましたが %v でした", err)
	}
}

type fakeQuizSession struct {
	answers  map[int]string
	failures int
	calls    int
}

func (s *fakeQuizSession) Answer(id int, value string) error {
	s.answers[id] = value
	return nil
}

func (s *fakeQuizSession) Synthesize(context.Context) (domain.AnalysisResult, error) {
	s.calls++
	if s.calls <= s.failures {
		return domain.AnalysisResult{}, &domain.Failure{
			Action: domain.RecoveryRetrySynthesis,
			Err:    &domain.ProviderError{Kind: domain.ProviderTransport, Op: "synthesis", Err: errors.New("boom")},
		}
	}
	return domain.AnalysisResult{MBTI: "ENFP"}, nil
}

func testQuestions() domain.Questions {
	return domain.Questions{
		{ID: 1, Text: "Pilih satu", Type: domain.QuestionMCQ, Options: []string{"A", "B"}, Category: "MBTI"},
		{ID: 2, Text: "Ceritakan", Type: domain.QuestionText, Category: "HSP"},
	}
}

func TestQuizRunner_RetryKeepsAnswers(t *testing.T) {
	p := &scriptedPrompter{
		inputs:  []string{"", "Suka musik"},
		selects: []int{1, 0}, // 設問1で "B"、再試行で "Coba lagi"
	}
	s := &fakeQuizSession{answers: map[int]string{}, failures: 1}
	var out bytes.Buffer

	result, err := NewQuizRunner(p, s, testQuestions(), &out).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.MBTI != "ENFP" {
		t.Errorf("MBTI = %q", result.MBTI)
	}
	if s.calls != 2 {
		t.Errorf("Synthesize の呼び出し回数 = %d, want 2", s.calls)
	}
	if s.answers[1] != "B" || s.answers[2] != "Suka musik" {
		t.Errorf("回答が保持されていません: %v", s.answers)
	}
	if !strings.Contains(out.String(), "Pertanyaan 2/2") {
		t.Errorf("進捗が出力されていません: %q", out.String())
	}
}

func TestQuizRunner_GiveUp(t *testing.T) {
	p := &scriptedPrompter{selects: []int{0, 1}, inputs: []string{"x"}}
	s := &fakeQuizSession{answers: map[int]string{}, failures: 5}

	_, err := NewQuizRunner(p, s, testQuestions(), nil).Run(context.Background())
	if domain.RecoveryFor(err) != domain.RecoveryRetrySynthesis {
		t.Fatalf("合成失敗のエラーが返るはずです: %v", err)
	}
	if s.calls != 1 {
		t.Errorf("Synthesize の呼び出し回数 = %d, want 1", s.calls)
	}
}

func TestRenderAdvice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "リストは箇条書きになる",
			input:    `<p>Tips kerja:</p><ul><li>Atur <strong>prioritas</strong></li><li>Istirahat cukup</li></ul>`,
			contains: []string{"Tips kerja:", "• Atur prioritas", "• Istirahat cukup"},
			excludes: []string{"<"},
		},
		{
			name:     "危険なタグと属性は除去される",
			input:    `<p onclick="x()">Halo</p><script>alert(1)</script><a href="javascript:x">klik</a>`,
			contains: []string{"Halo", "klik"},
			excludes: []string{"alert", "onclick", "javascript"},
		},
		{
			name:     "タグなしのテキスト",
			input:    "Tetap   semangat",
			contains: []string{"Tetap semangat"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderAdvice(tt.input)
			if err != nil {
				t.Fatalf("RenderAdvice() error = %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("%q が含まれていません: %q", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("%q が残っています: %q", s, got)
				}
			}
		})
	}
}

func TestLoadSelfie(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	pngPath := filepath.Join(dir, "me.png")
	if err := os.WriteFile(pngPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "me.txt")
	if err := os.WriteFile(txtPath, []byte("bukan gambar"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("空パスは nil", func(t *testing.T) {
		s, err := LoadSelfie("")
		if err != nil || s != nil {
			t.Fatalf("LoadSelfie(\"\") = %v, %v", s, err)
		}
	})
	t.Run("PNG を判定できる", func(t *testing.T) {
		s, err := LoadSelfie(pngPath)
		if err != nil {
			t.Fatalf("LoadSelfie() error = %v", err)
		}
		if s.MimeType != "image/png" {
			t.Errorf("MimeType = %q", s.MimeType)
		}
	})
	t.Run("画像以外は拒否する", func(t *testing.T) {
		_, err := LoadSelfie(txtPath)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("ValidationError を期待しましたが %v でした", err)
		}
	})
}

type stubCard struct{}

func (stubCard) Render(domain.UserProfile, domain.AnalysisResult) ([]byte, error) {
	return []byte("jpeg"), nil
}

func TestExportRunner_ExportCard(t *testing.T) {
	dir := t.TempDir()
	r := NewExportRunner(stubCard{}, export.NewExporter(dir, nil), nil)
	profile := domain.UserProfile{Nickname: "Budi"}
	result := domain.AnalysisResult{MBTI: "INTJ", Temperament: domain.Temperament("Melancholic")}

	// 共有に対応していない環境ではダウンロードにフォールバックするのだ
	outcome, err := r.ExportCard(context.Background(), profile, result, true)
	if err != nil {
		t.Fatalf("ExportCard() error = %v", err)
	}
	if got := filepath.Base(outcome.Path); got != "CACT-Result-Budi.jpg" {
		t.Errorf("ファイル名 = %q", got)
	}
	if _, err := os.Stat(outcome.Path); err != nil {
		t.Errorf("ファイルが保存されていません: %v", err)
	}

	_, err = r.ExportPortrait(context.Background(), profile, result, nil, false)
	if domain.RecoveryFor(err) != domain.RecoveryRetryExport {
		t.Errorf("未生成の肖像画は RenderError になるはずです: %v", err)
	}
}
