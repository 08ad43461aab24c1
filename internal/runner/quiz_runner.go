package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/workflow"
)

// QuizSession はクイズ実行に必要なセッション操作だけを切り出したものなのだ。
type QuizSession interface {
	Answer(id int, value string) error
	Synthesize(ctx context.Context) (domain.AnalysisResult, error)
}

var _ QuizSession = (workflow.Session)(nil)

var retryItems = []string{"Coba lagi", "Keluar"}

// QuizRunner は設問を順に提示し、最後にプロフィール合成まで行います。
type QuizRunner struct {
	prompter  Prompter
	session   QuizSession
	questions domain.Questions
	out       io.Writer
}

// NewQuizRunner は QuizRunner を生成します。
func NewQuizRunner(p Prompter, s QuizSession, qs domain.Questions, out io.Writer) *QuizRunner {
	if out == nil {
		out = io.Discard
	}
	return &QuizRunner{prompter: p, session: s, questions: qs, out: out}
}

// Run はすべての設問に回答させ、合成結果を返すのだ。
// 合成に失敗した場合は回答を保持したまま再試行するかを尋ねます。
func (r *QuizRunner) Run(ctx context.Context) (domain.AnalysisResult, error) {
	total := len(r.questions)
	for i, q := range r.questions {
		if err := ctx.Err(); err != nil {
			return domain.AnalysisResult{}, err
		}
		fmt.Fprintln(r.out, progressStyle.Render(fmt.Sprintf("Pertanyaan %d/%d · %s", i+1, total, q.Category)))

		answer, err := r.ask(q)
		if err != nil {
			return domain.AnalysisResult{}, err
		}
		if err := r.session.Answer(q.ID, answer); err != nil {
			return domain.AnalysisResult{}, fmt.Errorf("回答の記録に失敗しました (設問 %d): %w", q.ID, err)
		}
	}

	for {
		fmt.Fprintln(r.out, progressStyle.Render("Menganalisis jawabanmu..."))
		result, err := r.session.Synthesize(ctx)
		if err == nil {
			return result, nil
		}
		if domain.RecoveryFor(err) != domain.RecoveryRetrySynthesis || ctx.Err() != nil {
			return domain.AnalysisResult{}, err
		}

		slog.Warn("プロフィール合成に失敗しました", "error", err)
		fmt.Fprintln(r.out, errorStyle.Render("Gagal menganalisis: "+failureMessage(err)))
		idx, perr := r.prompter.Select("Jawabanmu tetap tersimpan. Coba lagi?", retryItems)
		if perr != nil {
			return domain.AnalysisResult{}, perr
		}
		if idx != 0 {
			return domain.AnalysisResult{}, err
		}
	}
}

func (r *QuizRunner) ask(q domain.Question) (string, error) {
	if q.Type == domain.QuestionMCQ {
		idx, err := r.prompter.Select(q.Text, q.Options)
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(q.Options) {
			return "", fmt.Errorf("選択肢の範囲外です: %d", idx)
		}
		return q.Options[idx], nil
	}
	return r.prompter.Input(q.Text, "", requireText("Jawaban"))
}

// failureMessage はユーザー向けの短い失敗理由を返すのだ。
func failureMessage(err error) string {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return fmt.Sprintf("AI tidak dapat dihubungi (%s).", pe.Kind)
	}
	var me *domain.MalformedResponseError
	if errors.As(err, &me) {
		return "format jawaban AI tidak sesuai."
	}
	return err.Error()
}
