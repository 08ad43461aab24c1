package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-cact-kit/pkg/completion"
	"github.com/shouni/go-cact-kit/pkg/compositor"
	"github.com/shouni/go-cact-kit/pkg/config"
	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/export"
	"github.com/shouni/go-cact-kit/pkg/orchestrator"
	"github.com/shouni/go-cact-kit/pkg/prompts"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = 60 * time.Minute
)

// ManagerArgs は Manager の初期化に必要な引数です。
// Config 以外は省略可能で、nil の場合は設定から既定のものを構築するのだ。
type ManagerArgs struct {
	Config    config.Config
	Client    completion.Client
	Rules     *prompts.Rules
	Questions domain.Questions
	Sharer    export.Sharer
	// AdviceCache はセッションを跨いで共有されるアドバイスのキャッシュ
	AdviceCache *cache.Cache
}

// Manager は、ワークフローの各工程を担うコンポーネント群を構築・管理します。
// 補完クライアントと RateLimiter は Manager 単位で共有されるのだ。
type Manager struct {
	cfg         config.Config
	client      completion.Client
	rules       prompts.Rules
	questions   domain.Questions
	textPrompt  *prompts.TextPromptBuilder
	imagePrompt *prompts.ImagePromptBuilder
	composer    *compositor.Compositor
	exporter    *export.Exporter
	card        *export.CardRenderer
	adviceCache *cache.Cache
}

// New は、設定とルール定義を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	cfg := args.Config

	rules, err := initializeRules(args.Rules, cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	questions := args.Questions
	if questions == nil {
		if questions, err = prompts.DefaultQuestions(); err != nil {
			return nil, fmt.Errorf("設問の読み込みに失敗しました: %w", err)
		}
	}

	client, err := initializeClient(ctx, cfg, args.Client)
	if err != nil {
		return nil, err
	}

	textPrompt, err := prompts.NewTextPromptBuilder(rules, questions)
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}
	imagePrompt, err := prompts.NewImagePromptBuilder(rules)
	if err != nil {
		return nil, fmt.Errorf("ImagePromptBuilder の新規作成に失敗しました: %w", err)
	}

	adviceCache := args.AdviceCache
	if adviceCache == nil {
		adviceCache = cache.New(defaultCacheExpiration, cacheCleanupInterval)
	}

	return &Manager{
		cfg:         cfg,
		client:      client,
		rules:       rules,
		questions:   questions,
		textPrompt:  textPrompt,
		imagePrompt: imagePrompt,
		composer:    compositor.New(cfg.JPEGQuality),
		exporter:    export.NewExporter(cfg.OutputDir, initializeSharer(args.Sharer, cfg.ShareCommand)),
		card:        &export.CardRenderer{Scale: export.DefaultScale, Quality: cfg.JPEGQuality},
		adviceCache: adviceCache,
	}, nil
}

// initializeRules は渡されたルールを優先し、無ければファイルまたは埋め込みから読み込むのだ。
func initializeRules(rules *prompts.Rules, path string) (prompts.Rules, error) {
	if rules != nil {
		if err := rules.Validate(); err != nil {
			return prompts.Rules{}, fmt.Errorf("ルールが不正です: %w", err)
		}
		return *rules, nil
	}
	r, err := prompts.LoadRules(path)
	if err != nil {
		return prompts.Rules{}, fmt.Errorf("ルールの読み込みに失敗しました: %w", err)
	}
	return r, nil
}

// initializeClient は Gemini クライアントを初期化し、レート制限とタイムアウトで包みます。
func initializeClient(ctx context.Context, cfg config.Config, client completion.Client) (completion.Client, error) {
	if client == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		gc, err := completion.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		client = gc
	}

	burst := max(cfg.RateBurst, 1)
	var limiter *rate.Limiter
	if cfg.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), burst)
	}
	slog.Debug("補完クライアントを初期化しました",
		"model", cfg.GeminiModel,
		"image_model", cfg.ImageModel,
		"rate_interval", cfg.RateInterval,
		"burst", burst,
	)
	return completion.NewLimited(client, limiter, cfg.RequestTimeout, cfg.ImageTimeout), nil
}

func initializeSharer(sharer export.Sharer, commandLine string) export.Sharer {
	if sharer != nil {
		return sharer
	}
	if cs := export.NewCommandSharer(commandLine); cs != nil {
		return cs
	}
	return nil
}

// BuildSession は新しいセッション用の Orchestrator を構築するのだ。
func (m *Manager) BuildSession() (Session, error) {
	o, err := orchestrator.New(orchestrator.Dependencies{
		Client:      m.client,
		TextPrompt:  m.textPrompt,
		ImagePrompt: m.imagePrompt,
		Composer:    m.composer,
		Questions:   m.questions,
		Topics:      m.rules.Topics,
		TextModel:   m.cfg.GeminiModel,
		ImageModel:  m.cfg.ImageModel,
		AdviceCache: m.adviceCache,
	})
	if err != nil {
		return nil, fmt.Errorf("セッションの構築に失敗しました: %w", err)
	}
	return o, nil
}

func (m *Manager) BuildExporter() Exporter { return m.exporter }

func (m *Manager) BuildCardRenderer() CardRenderer { return m.card }

func (m *Manager) Questions() domain.Questions { return m.questions }

func (m *Manager) Topics() []domain.Topic {
	return append([]domain.Topic(nil), m.rules.Topics...)
}

// StyleFor はキャラクターの作品名から適用される画風名を返すのだ。
func (m *Manager) StyleFor(origin string) string {
	return m.imagePrompt.StyleFor(origin)
}
