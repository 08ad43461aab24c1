package completion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-cact-kit/pkg/domain"

	"github.com/shouni/gemini-image-kit/ports"
	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

const (
	mimeTypeJSON = "application/json"

	imageMaxRetries   = 2
	imageInitialDelay = 2 * time.Second
	imageMaxDelay     = 10 * time.Second
)

// GeminiClient は Client の Gemini 実装です。
// JSON モードのテキストは genai を直接、画像生成は go-gemini-client の GenerateWithParts を通すのだ。
type GeminiClient struct {
	models      generator
	images      partsGenerator
	temperature *float32
}

// generator は genai.Models のうち利用するメソッドだけを切り出したものなのだ。
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// partsGenerator は gemini.Generator のうちマルチモーダル生成だけを切り出したものです。
type partsGenerator interface {
	GenerateWithParts(ctx context.Context, modelName string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// NewGeminiClient は API キーから Gemini クライアントを初期化します。
// キーが空の場合は起動時エラーとして扱うのだ。
func NewGeminiClient(ctx context.Context, apiKey string, temperature float32) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("Gemini API キーが設定されていません")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	imageClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:       apiKey,
		Temperature:  genai.Ptr(temperature),
		MaxRetries:   imageMaxRetries,
		InitialDelay: imageInitialDelay,
		MaxDelay:     imageMaxDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("画像生成クライアントの初期化に失敗しました: %w", err)
	}
	return &GeminiClient{
		models:      client.Models,
		images:      imageClient,
		temperature: genai.Ptr(temperature),
	}, nil
}

// CompleteText はテキスト応答を返します。Payload.JSON が true なら構造化 JSON モードで呼び出すのだ。
func (c *GeminiClient) CompleteText(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: c.temperature}
	if req.Payload.JSON {
		cfg.ResponseMIMEType = mimeTypeJSON
	}

	resp, err := c.generate(ctx, "text", req, cfg)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", emptyResponse("text")
	}
	return text, nil
}

// CompleteMultimodal はテキストと画像のパーツを送り、応答から最初のインライン画像パートを取り出します。
// 一時的な失敗の再試行は go-gemini-client に任せるのだ。
func (c *GeminiClient) CompleteMultimodal(ctx context.Context, req Request) (*Result, error) {
	const op = "multimodal"
	parts := toParts(req.Payload)
	if len(parts) == 0 {
		return nil, &domain.ProviderError{Kind: domain.ProviderBadRequest, Op: op, Err: fmt.Errorf("空の Payload です")}
	}

	var opts gemini.GenerateOptions
	if req.Seed != nil {
		opts.Seed = genai.Ptr(int64(*req.Seed))
	}

	logger := slog.With("op", op, "model", req.Model, "parts", len(parts))
	logger.Debug("Calling Gemini API")

	startTime := time.Now()
	resp, err := c.images.GenerateWithParts(ctx, req.Model, parts, opts)
	if err != nil {
		return nil, classifyError(op, err)
	}
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 || resp.RawResponse.Candidates[0].Content == nil {
		return nil, emptyResponse(op)
	}
	logger.Debug("Gemini API call completed", "duration", time.Since(startTime).Round(time.Millisecond))

	result := extractResult(resp.RawResponse)
	if result.Image == nil && result.Text == "" {
		return nil, emptyResponse(op)
	}
	if result.Image != nil {
		result.Image.UsedSeed = ports.DereferenceSeed(opts.Seed)
	}
	return result, nil
}

func (c *GeminiClient) generate(ctx context.Context, op string, req Request, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	contents := toContents(req.Payload)
	if len(contents) == 0 {
		return nil, &domain.ProviderError{Kind: domain.ProviderBadRequest, Op: op, Err: fmt.Errorf("空の Payload です")}
	}

	logger := slog.With("op", op, "model", req.Model, "parts", len(req.Payload.Parts), "json", req.Payload.JSON)
	logger.Debug("Calling Gemini API")

	startTime := time.Now()
	resp, err := c.models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, classifyError(op, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, emptyResponse(op)
	}

	logger.Debug("Gemini API call completed", "duration", time.Since(startTime).Round(time.Millisecond))
	return resp, nil
}

// toParts は domain.Payload を genai のパーツ列に変換するのだ。空のテキストは捨てます。
func toParts(p domain.Payload) []*genai.Part {
	parts := make([]*genai.Part, 0, len(p.Parts))
	for _, part := range p.Parts {
		if part.IsInline() {
			parts = append(parts, genai.NewPartFromBytes(part.Data, part.MIMEType))
			continue
		}
		if strings.TrimSpace(part.Text) == "" {
			continue
		}
		parts = append(parts, genai.NewPartFromText(part.Text))
	}
	return parts
}

func toContents(p domain.Payload) []*genai.Content {
	parts := toParts(p)
	if len(parts) == 0 {
		return nil
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// extractResult は最初の候補からテキストと最初の画像だけを取り出します。残りの画像は無視するのだ。
func extractResult(resp *genai.GenerateContentResponse) *Result {
	result := &Result{}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			if result.Image == nil && strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				result.Image = &ports.ImageResponse{
					Data:     part.InlineData.Data,
					MimeType: part.InlineData.MIMEType,
				}
			}
			continue
		}
		if part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	result.Text = strings.TrimSpace(sb.String())
	return result
}
