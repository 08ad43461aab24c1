package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-cact-kit/pkg/completion"
	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/prompts"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/gemini-image-kit/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const analysisJSON = `{
  "mbti": "ENFP",
  "temperament": "Sanguine",
  "finalProfile": {
    "hexacoSummary": "High Extraversion",
    "hspLevel": "Medium",
    "synthesis": "Kamu orangnya ceria.",
    "keyTraits": ["Ceria", "Kreatif", "Spontan", "Hangat"],
    "competencies": {
      "communication": "High (lancar)",
      "managingChange": "High (adaptif)",
      "resultOrientation": "Medium (kadang lupa)",
      "publicService": "High (ramah)",
      "decisionMaking": "Medium (intuitif)"
    }
  },
  "narrative": {"tone": "Gen Y style", "humorousContent": "Healing terus.", "summary": "Si paling semangat."}
}`

const charactersJSON = `[
  {"name": "Naruto Uzumaki", "origin": "Naruto", "justification": "Pantang menyerah."},
  {"name": "Monkey D. Luffy", "origin": "One Piece", "justification": "Spontan."},
  {"name": "Kamen Rider Black", "origin": "Kamen Rider", "justification": "Setia kawan."}
]`

// fakeClient はプロンプトの内容で応答を振り分けるテスト用の Client なのだ。
type fakeClient struct {
	mu    sync.Mutex
	calls map[string]int
	texts []string

	synthesis  func(ctx context.Context, prompt string) (string, error)
	advice     func(ctx context.Context, prompt string) (string, error)
	characters func(ctx context.Context, prompt string) (string, error)
	portrait   func(ctx context.Context, req completion.Request) (*completion.Result, error)
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		calls:      make(map[string]int),
		synthesis:  func(context.Context, string) (string, error) { return analysisJSON, nil },
		advice:     func(context.Context, string) (string, error) { return "<p>Belajar data.</p>", nil },
		characters: func(context.Context, string) (string, error) { return charactersJSON, nil },
		portrait: func(context.Context, completion.Request) (*completion.Result, error) {
			return &completion.Result{Image: &ports.ImageResponse{Data: []byte("raw"), MimeType: "image/png"}}, nil
		},
	}
}

func (f *fakeClient) record(kind, prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind]++
	f.texts = append(f.texts, prompt)
}

func (f *fakeClient) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeClient) CompleteText(ctx context.Context, req completion.Request) (string, error) {
	prompt := req.Payload.Text()
	switch {
	case strings.Contains(prompt, "Act as an expert psychologist"):
		f.record("synthesis", prompt)
		return f.synthesis(ctx, prompt)
	case strings.Contains(prompt, "Match fictional characters"):
		f.record("characters", prompt)
		return f.characters(ctx, prompt)
	default:
		f.record("advice", prompt)
		return f.advice(ctx, prompt)
	}
}

func (f *fakeClient) CompleteMultimodal(ctx context.Context, req completion.Request) (*completion.Result, error) {
	f.record("portrait", req.Payload.Text())
	return f.portrait(ctx, req)
}

type fakeComposer struct {
	mu       sync.Mutex
	overlays []domain.Overlay
}

func (c *fakeComposer) Compose(raw []byte, overlay domain.Overlay) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlays = append(c.overlays, overlay)
	return []byte(string(raw) + ":" + overlay.MBTI + ":" + strings.Join(overlay.Traits, ",")), nil
}

func newTestOrchestrator(t *testing.T, client completion.Client) (*Orchestrator, *fakeComposer) {
	t.Helper()
	rules, err := prompts.DefaultRules()
	require.NoError(t, err)
	qs, err := prompts.DefaultQuestions()
	require.NoError(t, err)
	tb, err := prompts.NewTextPromptBuilder(rules, qs)
	require.NoError(t, err)
	ib, err := prompts.NewImagePromptBuilder(rules)
	require.NoError(t, err)

	composer := &fakeComposer{}
	o, err := New(Dependencies{
		Client:      client,
		TextPrompt:  tb,
		ImagePrompt: ib,
		Composer:    composer,
		Questions:   qs,
		Topics:      rules.Topics,
		TextModel:   "text-model",
		ImageModel:  "image-model",
		// janitor ゴルーチンを起動しないキャッシュにするのだ
		AdviceCache: cache.New(cache.NoExpiration, 0),
	})
	require.NoError(t, err)
	return o, composer
}

func startQuiz(t *testing.T, o *Orchestrator, age int) {
	t.Helper()
	p, err := domain.NewUserProfile("Budi", age, domain.GenderMale, "Guru")
	require.NoError(t, err)
	require.NoError(t, o.Start(p))
	for _, q := range o.Questions() {
		answer := "Jawaban bebas saya"
		if q.Type == domain.QuestionMCQ {
			answer = q.Options[0]
		}
		require.NoError(t, o.Answer(q.ID, answer))
	}
}

func toResult(t *testing.T, o *Orchestrator) {
	t.Helper()
	startQuiz(t, o, 32)
	_, err := o.Synthesize(context.Background())
	require.NoError(t, err)
}

func TestEndToEnd_Age32IsGenY(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	o, _ := newTestOrchestrator(t, client)
	assert.Equal(t, domain.StageIntro, o.Snapshot().Stage)

	startQuiz(t, o, 32)
	snap := o.Snapshot()
	assert.Equal(t, domain.StageQuiz, snap.Stage)
	assert.Equal(t, domain.GenY, snap.Profile.Generation)

	result, err := o.Synthesize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ENFP", result.MBTI)
	assert.Equal(t, domain.Sanguine, result.Temperament)

	require.Equal(t, 1, client.count("synthesis"))
	assert.Contains(t, client.texts[0], "(Gen Y)", "合成プロンプトに世代が含まれていないのだ")

	snap = o.Snapshot()
	assert.Equal(t, domain.StageResult, snap.Stage)
	require.NotNil(t, snap.Result)
	assert.NotEmpty(t, snap.ResultID)
	assert.Equal(t, domain.StatusIdle, snap.Advice.State.Status)
}

func TestSynthesize_ThreeTraitsReturnsToQuiz(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	client.synthesis = func(context.Context, string) (string, error) {
		return strings.Replace(analysisJSON, `, "Hangat"`, "", 1), nil
	}
	o, _ := newTestOrchestrator(t, client)
	startQuiz(t, o, 32)

	_, err := o.Synthesize(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.RecoveryRetrySynthesis, domain.RecoveryFor(err))
	var me *domain.MalformedResponseError
	assert.True(t, errors.As(err, &me), "原因は MalformedResponseError のはずなのだ: %v", err)

	snap := o.Snapshot()
	assert.Equal(t, domain.StageQuiz, snap.Stage)
	assert.Nil(t, snap.Result)
	assert.Len(t, snap.Answers, len(o.Questions()), "回答が保持されていないのだ")

	// 再試行で成功できること
	client.synthesis = func(context.Context, string) (string, error) { return analysisJSON, nil }
	_, err = o.Synthesize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StageResult, o.Snapshot().Stage)
}

func TestSynthesize_ProviderFailure(t *testing.T) {
	client := newFakeClient()
	client.synthesis = func(context.Context, string) (string, error) {
		return "", &domain.ProviderError{Kind: domain.ProviderQuota, Op: "text"}
	}
	o, _ := newTestOrchestrator(t, client)
	startQuiz(t, o, 50)

	_, err := o.Synthesize(context.Background())
	assert.Equal(t, domain.RecoveryRetrySynthesis, domain.RecoveryFor(err))
	assert.Equal(t, domain.StageQuiz, o.Snapshot().Stage)
}

func TestStageGuards(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeClient())

	assert.ErrorIs(t, o.Answer(1, "x"), ErrInvalidStage)
	_, err := o.Synthesize(context.Background())
	assert.ErrorIs(t, err, ErrInvalidStage)
	_, err = o.RequestAdvice(context.Background(), "Career Development")
	assert.ErrorIs(t, err, ErrInvalidStage)

	p, err := domain.NewUserProfile("Budi", 20, domain.GenderMale, "")
	require.NoError(t, err)
	require.NoError(t, o.Start(p))
	assert.ErrorIs(t, o.Start(p), ErrInvalidStage)

	_, err = o.Synthesize(context.Background())
	assert.Equal(t, domain.RecoveryFixInput, domain.RecoveryFor(err), "未回答のまま合成できてしまったのだ")
	assert.Equal(t, domain.StageQuiz, o.Snapshot().Stage)
}

func TestAdvice_LaterRequestWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	client.advice = func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "(Career Development)") {
			close(startedA)
			<-releaseA
			return "<p>A</p>", nil
		}
		return "<p>B</p>", nil
	}
	o, _ := newTestOrchestrator(t, client)
	toResult(t, o)

	var wg sync.WaitGroup
	var errA error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = o.RequestAdvice(context.Background(), "Career Development")
	}()
	<-startedA

	textB, err := o.RequestAdvice(context.Background(), "Business Ideas")
	require.NoError(t, err)
	assert.Equal(t, "<p>B</p>", textB)

	close(releaseA)
	wg.Wait()
	assert.ErrorIs(t, errA, ErrSuperseded)

	snap := o.Snapshot()
	assert.Equal(t, "Business Ideas", snap.Advice.Topic.ID)
	assert.Equal(t, "<p>B</p>", snap.Advice.Text)
	assert.Equal(t, domain.StatusResolved, snap.Advice.State.Status)
}

func TestAdvice_CachedPerTopic(t *testing.T) {
	client := newFakeClient()
	o, _ := newTestOrchestrator(t, client)
	toResult(t, o)

	for i := 0; i < 2; i++ {
		_, err := o.RequestAdvice(context.Background(), "Upskilling Needs")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, client.count("advice"))

	_, err := o.RequestAdvice(context.Background(), "unknown")
	assert.Equal(t, domain.RecoveryFixInput, domain.RecoveryFor(err))
}

func TestSecondaryFailureIsolation(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	client.characters = func(context.Context, string) (string, error) {
		return "", &domain.ProviderError{Kind: domain.ProviderTransport, Op: "text", Err: errors.New("reset")}
	}
	o, _ := newTestOrchestrator(t, client)
	toResult(t, o)

	_, err := o.RequestAdvice(context.Background(), "Career Development")
	require.NoError(t, err)

	_, err = o.RequestCharacters(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.RecoveryRetryItem, domain.RecoveryFor(err))

	snap := o.Snapshot()
	assert.Equal(t, domain.StageResult, snap.Stage)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "ENFP", snap.Result.MBTI)
	assert.Equal(t, domain.StatusFailed, snap.Characters.State.Status)
	assert.NotEmpty(t, snap.Characters.State.Message)
	assert.Equal(t, domain.StatusResolved, snap.Advice.State.Status, "アドバイスのスロットに影響が出ているのだ")
}

func TestCharacters_PartialList(t *testing.T) {
	client := newFakeClient()
	client.characters = func(context.Context, string) (string, error) {
		return `[{"name": "Upin", "origin": "Upin & Ipin"}, {"origin": "tanpa nama"}]`, nil
	}
	o, _ := newTestOrchestrator(t, client)
	toResult(t, o)

	list, err := o.RequestCharacters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Upin"}, list.Names())

	snap := o.Snapshot()
	assert.Equal(t, domain.StatusResolved, snap.Characters.State.Status)
	assert.NotEmpty(t, snap.Characters.State.Message, "部分成功の警告がないのだ")
}

func TestPortrait_JoinInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	client.portrait = func(ctx context.Context, req completion.Request) (*completion.Result, error) {
		started <- struct{}{}
		<-release
		return &completion.Result{Image: &ports.ImageResponse{Data: []byte("raw"), MimeType: "image/png"}}, nil
	}
	o, composer := newTestOrchestrator(t, client)
	toResult(t, o)
	_, err := o.RequestCharacters(context.Background())
	require.NoError(t, err)

	const name = "Naruto Uzumaki"
	results := make([]*domain.Portrait, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = o.RequestPortrait(context.Background(), name, nil)
		}()
		if i == 0 {
			<-started
		}
	}
	// 2つ目の呼び出しが合流するのを待つのだ
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, domain.StatusPending, o.Snapshot().Portraits[name].State.Status)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, client.count("portrait"), "プロバイダ呼び出しは1回だけのはずなのだ")
	assert.Equal(t, results[0].Cycle, results[1].Cycle)
	assert.Equal(t, results[0].Composite, results[1].Composite)
	assert.Equal(t, "ENFP", results[0].Overlay.MBTI)
	assert.Equal(t, []string{"Ceria", "Kreatif", "Spontan", "Hangat"}, results[0].Overlay.Traits)
	assert.Len(t, composer.overlays, 1)

	view := o.Snapshot().Portraits[name]
	assert.Equal(t, domain.StatusResolved, view.State.Status)
	assert.Equal(t, results[0].Cycle, view.Portrait.Cycle)
}

func TestPortrait_SeedAndIndependence(t *testing.T) {
	client := newFakeClient()
	var mu sync.Mutex
	seeds := map[int32]bool{}
	client.portrait = func(ctx context.Context, req completion.Request) (*completion.Result, error) {
		mu.Lock()
		defer mu.Unlock()
		require.NotNil(t, req.Seed)
		seeds[*req.Seed] = true
		if strings.Contains(req.Payload.Text(), "Monkey D. Luffy") {
			return nil, &domain.ProviderError{Kind: domain.ProviderEmpty, Op: "multimodal"}
		}
		return &completion.Result{Image: &ports.ImageResponse{Data: []byte("raw")}}, nil
	}
	o, _ := newTestOrchestrator(t, client)
	toResult(t, o)
	_, err := o.RequestCharacters(context.Background())
	require.NoError(t, err)

	_, err = o.RequestPortrait(context.Background(), "Naruto Uzumaki", nil)
	require.NoError(t, err)
	_, err = o.RequestPortrait(context.Background(), "Monkey D. Luffy", &domain.Selfie{Data: []byte("jpeg"), MimeType: "image/jpeg"})
	require.Error(t, err)

	snap := o.Snapshot()
	assert.Equal(t, domain.StatusResolved, snap.Portraits["Naruto Uzumaki"].State.Status)
	assert.Equal(t, domain.StatusFailed, snap.Portraits["Monkey D. Luffy"].State.Status)
	assert.Len(t, seeds, 2)

	_, err = o.RequestPortrait(context.Background(), "Sailor Moon", nil)
	assert.Equal(t, domain.RecoveryFixInput, domain.RecoveryFor(err))
}

func TestReset_DiscardsInFlightResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	started := make(chan struct{})
	release := make(chan struct{})
	client.advice = func(context.Context, string) (string, error) {
		close(started)
		<-release
		return "<p>late</p>", nil
	}
	o, _ := newTestOrchestrator(t, client)
	toResult(t, o)

	done := make(chan error, 1)
	go func() {
		_, err := o.RequestAdvice(context.Background(), "Career Development")
		done <- err
	}()
	<-started
	o.Reset()
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	snap := o.Snapshot()
	assert.Equal(t, domain.StageIntro, snap.Stage)
	assert.Empty(t, snap.Advice.Text)
}

func TestRestoreAndPrefetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	o, _ := newTestOrchestrator(t, client)

	p, err := domain.NewUserProfile("Siti", 24, domain.GenderFemale, "Desainer")
	require.NoError(t, err)
	result := domain.AnalysisResult{
		MBTI:        "INTJ",
		Temperament: domain.Melancholic,
		FinalProfile: domain.FinalProfile{
			KeyTraits: []string{"Analitis", "Mandiri", "Visioner", "Tegas"},
			Competencies: domain.Competencies{
				Communication: "Medium", ManagingChange: "High", ResultOrientation: "High",
				PublicService: "Low", DecisionMaking: "High",
			},
		},
	}
	require.NoError(t, o.Restore(p, result))
	assert.Equal(t, domain.StageResult, o.Snapshot().Stage)

	require.NoError(t, o.Prefetch(context.Background()))
	assert.Equal(t, len(o.Topics()), client.count("advice"))
	assert.Equal(t, 1, client.count("characters"))
	assert.Equal(t, domain.StatusIdle, o.Snapshot().Advice.State.Status, "事前取得でスロットが変わってしまったのだ")

	// 事前取得後はキャッシュから返るのだ
	_, err = o.RequestAdvice(context.Background(), "Personal Weaknesses")
	require.NoError(t, err)
	assert.Equal(t, len(o.Topics()), client.count("advice"))
}

func TestPrefetch_FailureDoesNotCancelSiblings(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	adviceFailed := make(chan struct{})
	var once sync.Once
	client.advice = func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Business Ideas") {
			once.Do(func() { close(adviceFailed) })
			return "", &domain.ProviderError{Kind: domain.ProviderQuota, Op: "text", Err: errors.New("429")}
		}
		return "<p>ok</p>", nil
	}
	client.characters = func(ctx context.Context, _ string) (string, error) {
		<-adviceFailed
		// 失敗が兄弟の取得に伝播する猶予を与えるのだ
		time.Sleep(30 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return charactersJSON, nil
	}
	o, _ := newTestOrchestrator(t, client)
	toResult(t, o)

	err := o.Prefetch(context.Background())
	require.Error(t, err)
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderQuota, pe.Kind)
	assert.Contains(t, err.Error(), "Business Ideas")

	snap := o.Snapshot()
	assert.Equal(t, domain.StatusResolved, snap.Characters.State.Status, "キャラクター取得が巻き添えで取り消されたのだ")
	assert.Len(t, snap.Characters.List, domain.CharacterMatchCount)

	// 失敗しなかったトピックはキャッシュ済みなのだ
	calls := client.count("advice")
	_, err = o.RequestAdvice(context.Background(), "Career Development")
	require.NoError(t, err)
	assert.Equal(t, calls, client.count("advice"))
}

func TestPortrait_FirstCallerCancelDoesNotFailJoiners(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newFakeClient()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	client.portrait = func(ctx context.Context, req completion.Request) (*completion.Result, error) {
		started <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
		}
		return &completion.Result{Image: &ports.ImageResponse{Data: []byte("raw"), MimeType: "image/png"}}, nil
	}
	o, _ := newTestOrchestrator(t, client)
	toResult(t, o)
	_, err := o.RequestCharacters(context.Background())
	require.NoError(t, err)

	const name = "Monkey D. Luffy"
	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := o.RequestPortrait(firstCtx, name, nil)
		firstErr <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	type outcome struct {
		p   *domain.Portrait
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		p, err := o.RequestPortrait(context.Background(), name, nil)
		second <- outcome{p, err}
	}()
	// 2つ目の呼び出しが実行中の生成に合流するのを待つのだ
	time.Sleep(50 * time.Millisecond)
	close(release)

	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.p)
	assert.Equal(t, 1, client.count("portrait"), "生成はやり直されず1回だけのはずなのだ")

	view := o.Snapshot().Portraits[name]
	assert.Equal(t, domain.StatusResolved, view.State.Status)
	assert.Equal(t, got.p.Cycle, view.Portrait.Cycle)
}
