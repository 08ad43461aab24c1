package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/go-cact-kit/pkg/completion"
	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/parser"
	"github.com/shouni/go-cact-kit/pkg/prompts"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = 60 * time.Minute
)

// Composer は生成画像にプロフィール情報を焼き込む契約なのだ。
type Composer interface {
	Compose(raw []byte, overlay domain.Overlay) ([]byte, error)
}

// Dependencies は Orchestrator が利用するコンポーネント群です。
type Dependencies struct {
	Client      completion.Client
	TextPrompt  prompts.TextPrompt
	ImagePrompt prompts.ImagePrompt
	Composer    Composer
	Questions   domain.Questions
	Topics      []domain.Topic
	TextModel   string
	ImageModel  string
	// AdviceCache は省略可能です。nil の場合は内部で生成するのだ。
	AdviceCache *cache.Cache
}

// Orchestrator は1セッション分の主フローと二次生成を管理します。
// 状態の変更はすべて mu の下で行い、プロバイダ呼び出しはロックの外で行うのだ。
type Orchestrator struct {
	deps Dependencies

	mu sync.Mutex
	s  session

	// 単調増加のカウンタ。セッションを跨いでも巻き戻らないのだ
	adviceSeq   uint64
	epochSeq    uint64
	cycleSeq    uint64
	synthSeqCtr uint64

	adviceCache   *cache.Cache
	portraitGroup singleflight.Group
}

// New は依存関係を検証して Orchestrator を生成します。
func New(deps Dependencies) (*Orchestrator, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("completion.Client は必須です")
	}
	if deps.TextPrompt == nil || deps.ImagePrompt == nil {
		return nil, fmt.Errorf("プロンプトビルダーは必須です")
	}
	if deps.Composer == nil {
		return nil, fmt.Errorf("Composer は必須です")
	}
	if err := deps.Questions.Validate(); err != nil {
		return nil, fmt.Errorf("設問定義が不正です: %w", err)
	}

	c := deps.AdviceCache
	if c == nil {
		c = cache.New(defaultCacheExpiration, cacheCleanupInterval)
	}

	o := &Orchestrator{deps: deps, adviceCache: c}
	o.s = o.newSession()
	return o, nil
}

func (o *Orchestrator) newSession() session {
	s := session{
		id:      uuid.NewString(),
		stage:   domain.StageIntro,
		answers: make(domain.AnswerSet),
	}
	s.resetSecondary()
	return s
}

// Questions は設問一覧を返すのだ。
func (o *Orchestrator) Questions() domain.Questions {
	return o.deps.Questions
}

// Topics はアドバイスのトピック一覧を返します。
func (o *Orchestrator) Topics() []domain.Topic {
	return append([]domain.Topic(nil), o.deps.Topics...)
}

// Start はインテークを確定し、クイズを開始します。
func (o *Orchestrator) Start(profile domain.UserProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s.stage != domain.StageIntro {
		return fmt.Errorf("%w: start (stage=%s)", ErrInvalidStage, o.s.stage)
	}
	o.s.profile = profile
	o.s.answers = make(domain.AnswerSet)
	o.s.stage = domain.StageQuiz

	slog.Info("クイズを開始しました", "session", o.s.id, "generation", profile.Generation)
	return nil
}

// Answer は設問への回答を記録します。クイズ中のみ有効なのだ。
func (o *Orchestrator) Answer(id int, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s.stage != domain.StageQuiz {
		return fmt.Errorf("%w: answer (stage=%s)", ErrInvalidStage, o.s.stage)
	}
	return o.s.answers.Set(o.deps.Questions, id, value)
}

// Synthesize は全回答からプロフィールを合成します。
// 失敗時はステージをクイズに戻し、回答を保持したまま RecoveryRetrySynthesis を返すのだ。
func (o *Orchestrator) Synthesize(ctx context.Context) (domain.AnalysisResult, error) {
	o.mu.Lock()
	if o.s.stage != domain.StageQuiz {
		stage := o.s.stage
		o.mu.Unlock()
		return domain.AnalysisResult{}, fmt.Errorf("%w: synthesize (stage=%s)", ErrInvalidStage, stage)
	}
	payload, err := o.deps.TextPrompt.Synthesis(o.s.profile, o.s.answers)
	if err != nil {
		o.mu.Unlock()
		return domain.AnalysisResult{}, err
	}
	o.synthSeqCtr++
	seq := o.synthSeqCtr
	o.s.synthSeq = seq
	o.s.stage = domain.StageSynthesizing
	logger := slog.With("session", o.s.id, "synthesis", seq)
	o.mu.Unlock()

	start := time.Now()
	logger.Info("プロフィール合成を開始します")

	result, err := o.synthesize(ctx, payload)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s.stage != domain.StageSynthesizing || o.s.synthSeq != seq {
		logger.Debug("古い合成結果を破棄しました")
		return domain.AnalysisResult{}, ErrSuperseded
	}
	if err != nil {
		o.s.stage = domain.StageQuiz
		logger.Error("プロフィール合成に失敗しました", "error", err, "duration", time.Since(start).Round(time.Millisecond))
		return domain.AnalysisResult{}, &domain.Failure{Action: domain.RecoveryRetrySynthesis, Err: err}
	}

	o.commitResult(result)
	logger.Info("プロフィール合成が完了しました",
		"mbti", result.MBTI,
		"temperament", result.Temperament,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result.Clone(), nil
}

func (o *Orchestrator) synthesize(ctx context.Context, payload domain.Payload) (domain.AnalysisResult, error) {
	raw, err := o.deps.Client.CompleteText(ctx, completion.Request{Model: o.deps.TextModel, Payload: payload})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return parser.ParseAnalysis(raw)
}

// commitResult は新しい結果を確定し、二次生成の状態をすべて初期化するのだ。ロック下で呼ぶこと。
func (o *Orchestrator) commitResult(result domain.AnalysisResult) {
	r := result.Clone()
	o.s.result = &r
	o.s.resultID = uuid.NewString()
	o.s.stage = domain.StageResult
	o.s.resetSecondary()
}

// Restore は保存済みの結果からリザルト画面に復帰します。
func (o *Orchestrator) Restore(profile domain.UserProfile, result domain.AnalysisResult) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := result.Validate(); err != nil {
		return &domain.ValidationError{Field: "result", Reason: err.Error()}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.s = o.newSession()
	o.s.profile = profile
	o.commitResult(result)
	slog.Info("保存済みの結果を復元しました", "session", o.s.id, "mbti", result.MBTI)
	return nil
}

// Reset はセッションを破棄してイントロに戻ります。
// 実行中のリクエストの結果は、届いても反映されずに破棄されるのだ。
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	old := o.s.id
	o.s = o.newSession()
	slog.Debug("セッションをリセットしました", "old", old, "session", o.s.id)
}

// Snapshot は現在の状態のディープコピーを返します。
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.s.snapshot()
}

// resultContext は二次生成に必要な入力をロック下でコピーするのだ。
func (o *Orchestrator) resultContext(op string) (domain.UserProfile, domain.AnalysisResult, error) {
	if o.s.stage != domain.StageResult || o.s.result == nil {
		return domain.UserProfile{}, domain.AnalysisResult{}, fmt.Errorf("%w: %s (stage=%s)", ErrInvalidStage, op, o.s.stage)
	}
	return o.s.profile, o.s.result.Clone(), nil
}

func isSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
