package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shouni/go-cact-kit/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/shouni/go-gemini-client/gemini"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	gotCfg   *genai.GenerateContentConfig
	gotParts []*genai.Part
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotCfg = cfg
	if len(contents) > 0 {
		f.gotParts = contents[0].Parts
	}
	return f.resp, f.err
}

func responseWithParts(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts, Role: genai.RoleModel}}},
	}
}

func TestGeminiClient_CompleteText(t *testing.T) {
	fm := &fakeModels{resp: responseWithParts(&genai.Part{Text: ` {"mbti":"INTJ"} `})}
	c := &GeminiClient{models: fm, temperature: genai.Ptr(float32(0.7))}

	text, err := c.CompleteText(context.Background(), Request{Model: "m", Payload: domain.TextPayload("hello", true)})
	require.NoError(t, err)
	assert.Equal(t, `{"mbti":"INTJ"}`, text)
	assert.Equal(t, mimeTypeJSON, fm.gotCfg.ResponseMIMEType, "JSON モードが指定されていないのだ")
}

type fakeParts struct {
	resp     *gemini.Response
	err      error
	gotOpts  gemini.GenerateOptions
	gotParts []*genai.Part
}

func (f *fakeParts) GenerateWithParts(_ context.Context, _ string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	f.gotParts = parts
	f.gotOpts = opts
	return f.resp, f.err
}

func TestGeminiClient_CompleteMultimodal(t *testing.T) {
	fp := &fakeParts{resp: &gemini.Response{RawResponse: responseWithParts(
		&genai.Part{Text: "here you go"},
		&genai.Part{InlineData: &genai.Blob{Data: []byte("first"), MIMEType: "image/png"}},
		&genai.Part{InlineData: &genai.Blob{Data: []byte("second"), MIMEType: "image/png"}},
	)}}
	c := &GeminiClient{images: fp}

	payload := domain.Payload{Parts: []domain.Part{
		{Text: "draw"},
		{Text: "   "},
		{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"},
	}}
	res, err := c.CompleteMultimodal(context.Background(), Request{Model: "m", Payload: payload, Seed: genai.Ptr(int32(42))})
	require.NoError(t, err)
	require.NotNil(t, res.Image)
	assert.Equal(t, []byte("first"), res.Image.Data, "最初の画像だけを採用するのだ")
	assert.Equal(t, "image/png", res.Image.MimeType)
	assert.Equal(t, int64(42), res.Image.UsedSeed)
	assert.Equal(t, "here you go", res.Text)

	require.NotNil(t, fp.gotOpts.Seed)
	assert.Equal(t, int64(42), *fp.gotOpts.Seed)
	require.Len(t, fp.gotParts, 2, "空のテキストパートは送らないのだ")
	assert.Equal(t, "image/jpeg", fp.gotParts[1].InlineData.MIMEType)
}

func TestGeminiClient_CompleteMultimodalErrors(t *testing.T) {
	t.Run("クォータ超過", func(t *testing.T) {
		c := &GeminiClient{images: &fakeParts{err: fmt.Errorf("Gemini API 呼び出しに失敗しました: %w", genai.APIError{Code: 429})}}
		_, err := c.CompleteMultimodal(context.Background(), Request{Payload: domain.TextPayload("draw", false)})
		var pe *domain.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, domain.ProviderQuota, pe.Kind)
	})
	t.Run("画像もテキストもない", func(t *testing.T) {
		c := &GeminiClient{images: &fakeParts{resp: &gemini.Response{RawResponse: responseWithParts()}}}
		_, err := c.CompleteMultimodal(context.Background(), Request{Payload: domain.TextPayload("draw", false)})
		var pe *domain.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, domain.ProviderEmpty, pe.Kind)
	})
	t.Run("空の Payload", func(t *testing.T) {
		fp := &fakeParts{}
		c := &GeminiClient{images: fp}
		_, err := c.CompleteMultimodal(context.Background(), Request{})
		var pe *domain.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, domain.ProviderBadRequest, pe.Kind)
		assert.Nil(t, fp.gotParts, "プロバイダは呼ばれないはずなのだ")
	})
}

func TestGeminiClient_EmptyResponse(t *testing.T) {
	c := &GeminiClient{models: &fakeModels{resp: &genai.GenerateContentResponse{}}}
	_, err := c.CompleteText(context.Background(), Request{Payload: domain.TextPayload("x", false)})

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderEmpty, pe.Kind)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ProviderErrorKind
	}{
		{"認証エラー", genai.APIError{Code: 401, Message: "bad key"}, domain.ProviderAuth},
		{"クォータ超過", fmt.Errorf("wrap: %w", genai.APIError{Code: 429}), domain.ProviderQuota},
		{"不正リクエスト", genai.APIError{Code: 400}, domain.ProviderBadRequest},
		{"タイムアウト", context.DeadlineExceeded, domain.ProviderTimeout},
		{"生成ブロック", fmt.Errorf("wrap: %w", &gemini.APIResponseError{}), domain.ProviderEmpty},
		{"その他", errors.New("connection reset"), domain.ProviderTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pe *domain.ProviderError
			require.ErrorAs(t, classifyError("text", tt.err), &pe)
			assert.Equal(t, tt.want, pe.Kind)
		})
	}
}

type slowClient struct{}

func (slowClient) CompleteText(ctx context.Context, _ Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowClient) CompleteMultimodal(ctx context.Context, _ Request) (*Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLimited_BoundsEveryCall(t *testing.T) {
	l := NewLimited(slowClient{}, rate.NewLimiter(rate.Inf, 1), 20*time.Millisecond, 20*time.Millisecond)

	start := time.Now()
	_, err := l.CompleteText(context.Background(), Request{})
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderTimeout, pe.Kind)
	assert.Less(t, time.Since(start), 2*time.Second, "タイムアウトが効いていないのだ")

	_, err = l.CompleteMultimodal(context.Background(), Request{})
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderTimeout, pe.Kind)
}
