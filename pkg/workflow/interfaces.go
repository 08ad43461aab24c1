package workflow

import (
	"context"

	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/export"
	"github.com/shouni/go-cact-kit/pkg/orchestrator"
)

// Workflow は、CACT の各工程を担当するコンポーネントを構築するためのインターフェースを定義します。
type Workflow interface {
	BuildSession() (Session, error)
	BuildExporter() Exporter
	BuildCardRenderer() CardRenderer
	Questions() domain.Questions
	Topics() []domain.Topic
}

// Session は、1ユーザー分の診断フローと二次生成を担う責務を持ちます。
type Session interface {
	Start(profile domain.UserProfile) error
	Answer(id int, value string) error
	Synthesize(ctx context.Context) (domain.AnalysisResult, error)
	Restore(profile domain.UserProfile, result domain.AnalysisResult) error
	Reset()
	Snapshot() orchestrator.Snapshot

	RequestAdvice(ctx context.Context, topicID string) (string, error)
	RequestCharacters(ctx context.Context) (domain.CharacterList, error)
	RequestPortrait(ctx context.Context, name string, selfie *domain.Selfie) (*domain.Portrait, error)
	Prefetch(ctx context.Context) error
}

// Exporter は、画像をダウンロードまたは共有する責務を持ちます。
type Exporter interface {
	Download(ctx context.Context, data []byte, filename string) (string, error)
	Share(ctx context.Context, data []byte, filename, title, text string) (export.ShareOutcome, error)
}

// CardRenderer は、診断結果をカード画像に描画する責務を持ちます。
type CardRenderer interface {
	Render(profile domain.UserProfile, result domain.AnalysisResult) ([]byte, error)
}

var (
	_ Session      = (*orchestrator.Orchestrator)(nil)
	_ Exporter     = (*export.Exporter)(nil)
	_ CardRenderer = (*export.CardRenderer)(nil)
)
