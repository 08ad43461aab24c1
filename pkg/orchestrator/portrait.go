package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-cact-kit/pkg/completion"
	"github.com/shouni/go-cact-kit/pkg/domain"

	"golang.org/x/sync/singleflight"
)

// RequestPortrait は指定キャラクターの肖像画を生成し、プロフィールを焼き込んだ合成画像を返します。
// 同じキャラクターの生成が実行中であれば、新しい呼び出しは既存の生成に合流して同じ結果を受け取るのだ。
// 異なるキャラクターの生成は互いに独立して進みます。
func (o *Orchestrator) RequestPortrait(ctx context.Context, name string, selfie *domain.Selfie) (*domain.Portrait, error) {
	o.mu.Lock()
	profile, result, err := o.resultContext("portrait")
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if o.s.characters.state.Status != domain.StatusResolved {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: portrait (characters=%s)", ErrInvalidStage, o.s.characters.state.Status)
	}
	match, ok := o.s.characters.list.ByName(name)
	epoch := o.s.characters.epoch
	sessionID := o.s.id
	o.mu.Unlock()
	if !ok {
		return nil, &domain.ValidationError{Field: "character", Reason: fmt.Sprintf("リストに存在しないキャラクターです: %q", name)}
	}

	key := fmt.Sprintf("%s/%d/%s", sessionID, epoch, match.Name)
	// 生成は最初の呼び出し元のキャンセルに引きずられないよう切り離し、各呼び出し元は自分の ctx で待つのだ
	flightCtx := context.WithoutCancel(ctx)
	ch := o.portraitGroup.DoChan(key, func() (any, error) {
		return o.generatePortrait(flightCtx, epoch, match, profile, result, selfie)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Shared {
		slog.Debug("実行中の肖像画生成に合流しました", "character", match.Name)
	}
	if res.Err != nil {
		return nil, res.Err
	}
	v := res.Val

	p, ok := v.(*domain.Portrait)
	if !ok {
		return nil, fmt.Errorf("singleflight から予期しない型が返されました: %T", v)
	}
	return clonePortrait(p), nil
}

// generatePortrait は1サイクル分の生成と合成を行います。
// 生画像と合成画像は必ず同じサイクルの入力から作られ、コミット時にサイクルとリストの epoch を検証するのだ。
func (o *Orchestrator) generatePortrait(ctx context.Context, epoch uint64, match domain.CharacterMatch, profile domain.UserProfile, result domain.AnalysisResult, selfie *domain.Selfie) (*domain.Portrait, error) {
	o.mu.Lock()
	if o.s.characters.epoch != epoch {
		o.mu.Unlock()
		return nil, ErrSuperseded
	}
	o.cycleSeq++
	cycle := o.cycleSeq
	slot := &portraitSlot{cycle: cycle, state: domain.RequestState{Status: domain.StatusPending}}
	if prev, ok := o.s.portraits[match.Name]; ok {
		// 再生成中も以前の画像は表示し続けるのだ
		slot.portrait = prev.portrait
	}
	o.s.portraits[match.Name] = slot
	o.mu.Unlock()

	logger := slog.With("character", match.Name, "cycle", cycle, "epoch", epoch)
	start := time.Now()
	logger.Info("肖像画の生成を開始します", "selfie", selfie != nil)

	overlay := domain.Overlay{
		MBTI:   result.MBTI,
		Traits: append([]string(nil), result.FinalProfile.KeyTraits...),
	}
	portrait, err := o.renderPortrait(ctx, match, profile, result, selfie, overlay)
	if err == nil {
		portrait.Cycle = cycle
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	current, ok := o.s.portraits[match.Name]
	if !ok || current.cycle != cycle || o.s.characters.epoch != epoch {
		logger.Debug("古い肖像画の結果を破棄しました")
		return nil, ErrSuperseded
	}
	if err != nil {
		current.state = domain.RequestState{Status: domain.StatusFailed, Message: userMessage(err)}
		logger.Warn("肖像画の生成に失敗しました", "error", err)
		return nil, err
	}

	current.state = domain.RequestState{Status: domain.StatusResolved}
	current.portrait = portrait
	logger.Info("肖像画を生成しました", "bytes", len(portrait.Composite), "duration", time.Since(start).Round(time.Millisecond))
	return portrait, nil
}

func (o *Orchestrator) renderPortrait(ctx context.Context, match domain.CharacterMatch, profile domain.UserProfile, result domain.AnalysisResult, selfie *domain.Selfie, overlay domain.Overlay) (*domain.Portrait, error) {
	payload, err := o.deps.ImagePrompt.Portrait(match, profile, result, selfie)
	if err != nil {
		return nil, err
	}

	seed := domain.GetSeedFromName(match.Name)
	res, err := o.deps.Client.CompleteMultimodal(ctx, completion.Request{
		Model:   o.deps.ImageModel,
		Payload: payload,
		Seed:    &seed,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Image == nil || len(res.Image.Data) == 0 {
		return nil, &domain.ProviderError{Kind: domain.ProviderEmpty, Op: "portrait", Err: fmt.Errorf("画像が含まれていません")}
	}

	composite, err := o.deps.Composer.Compose(res.Image.Data, overlay)
	if err != nil {
		return nil, err
	}
	return &domain.Portrait{
		Character: match,
		Raw:       res.Image,
		Composite: composite,
		Overlay:   overlay,
	}, nil
}
