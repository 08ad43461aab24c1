package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-cact-kit/pkg/completion"
	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/parser"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

func (o *Orchestrator) topicByID(id string) (domain.Topic, bool) {
	for _, t := range o.deps.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Topic{}, false
}

func adviceCacheKey(resultID, topicID string) string {
	return resultID + "/" + topicID
}

// RequestAdvice は指定トピックのアドバイスを生成します。
// 後から発行されたリクエストが常に優先され、先に発行したリクエストの結果が遅れて届いた場合は
// ErrSuperseded を返して破棄するのだ。
func (o *Orchestrator) RequestAdvice(ctx context.Context, topicID string) (string, error) {
	topic, ok := o.topicByID(topicID)
	if !ok {
		return "", &domain.ValidationError{Field: "topic", Reason: fmt.Sprintf("不明なトピックです: %q", topicID)}
	}

	o.mu.Lock()
	profile, result, err := o.resultContext("advice")
	if err != nil {
		o.mu.Unlock()
		return "", err
	}
	o.adviceSeq++
	seq := o.adviceSeq
	o.s.advice = adviceSlot{topic: topic, seq: seq, state: domain.RequestState{Status: domain.StatusPending}}
	key := adviceCacheKey(o.s.resultID, topic.ID)
	logger := slog.With("session", o.s.id, "topic", topic.ID, "seq", seq)
	o.mu.Unlock()

	start := time.Now()
	text, err := o.fetchAdvice(ctx, key, profile, result, topic)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s.advice.seq != seq {
		logger.Debug("古いアドバイス結果を破棄しました")
		return "", ErrSuperseded
	}
	if err != nil {
		o.s.advice.state = domain.RequestState{Status: domain.StatusFailed, Message: userMessage(err)}
		logger.Warn("アドバイスの生成に失敗しました", "error", err)
		return "", err
	}
	o.s.advice.state = domain.RequestState{Status: domain.StatusResolved}
	o.s.advice.text = text
	logger.Info("アドバイスを取得しました", "duration", time.Since(start).Round(time.Millisecond))
	return text, nil
}

// fetchAdvice はキャッシュを優先してアドバイス本文を取得するのだ。
func (o *Orchestrator) fetchAdvice(ctx context.Context, key string, profile domain.UserProfile, result domain.AnalysisResult, topic domain.Topic) (string, error) {
	if v, ok := o.adviceCache.Get(key); ok {
		if text, ok := v.(string); ok {
			slog.Debug("アドバイスのキャッシュを使用します", "topic", topic.ID)
			return text, nil
		}
	}

	payload, err := o.deps.TextPrompt.Advice(result, profile, topic)
	if err != nil {
		return "", err
	}
	raw, err := o.deps.Client.CompleteText(ctx, completion.Request{Model: o.deps.TextModel, Payload: payload})
	if err != nil {
		return "", err
	}
	text, err := parser.ParseAdvice(raw)
	if err != nil {
		return "", err
	}
	o.adviceCache.Set(key, text, cache.DefaultExpiration)
	return text, nil
}

// RequestCharacters はキャラクターマッチを生成し、リストを置き換えます。
// 一部だけ解析できた場合は部分リストで解決し、警告メッセージを残すのだ。
func (o *Orchestrator) RequestCharacters(ctx context.Context) (domain.CharacterList, error) {
	o.mu.Lock()
	profile, result, err := o.resultContext("characters")
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.epochSeq++
	epoch := o.epochSeq
	previous := o.s.characters.list
	o.s.characters = characterSlot{epoch: epoch, state: domain.RequestState{Status: domain.StatusPending}, list: previous}
	logger := slog.With("session", o.s.id, "epoch", epoch)
	o.mu.Unlock()

	start := time.Now()
	list, err := o.fetchCharacters(ctx, profile, result)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s.characters.epoch != epoch {
		logger.Debug("古いキャラクター結果を破棄しました")
		return nil, ErrSuperseded
	}

	var malformed *domain.MalformedResponseError
	switch {
	case err == nil:
		o.s.characters.state = domain.RequestState{Status: domain.StatusResolved}
	case errors.As(err, &malformed) && len(list) > 0:
		o.s.characters.state = domain.RequestState{
			Status:  domain.StatusResolved,
			Message: fmt.Sprintf("Hanya %d dari %d karakter yang berhasil dimuat.", len(list), domain.CharacterMatchCount),
		}
		logger.Warn("キャラクターの一部のみ解析できました", "count", len(list), "error", err)
	default:
		o.s.characters.state = domain.RequestState{Status: domain.StatusFailed, Message: userMessage(err)}
		logger.Warn("キャラクターの生成に失敗しました", "error", err)
		return nil, err
	}

	o.s.characters.list = list
	o.invalidatePortraits(list)
	logger.Info("キャラクターを取得しました", "names", list.Names(), "duration", time.Since(start).Round(time.Millisecond))
	return append(domain.CharacterList(nil), list...), nil
}

func (o *Orchestrator) fetchCharacters(ctx context.Context, profile domain.UserProfile, result domain.AnalysisResult) (domain.CharacterList, error) {
	payload, err := o.deps.TextPrompt.Characters(result, profile)
	if err != nil {
		return nil, err
	}
	raw, err := o.deps.Client.CompleteText(ctx, completion.Request{Model: o.deps.TextModel, Payload: payload})
	if err != nil {
		return nil, err
	}
	return parser.ParseCharacters(raw)
}

// invalidatePortraits は新しいリストに同一内容で残っていないキャラクターの肖像画を破棄するのだ。
// ロック下で呼ぶこと。
func (o *Orchestrator) invalidatePortraits(list domain.CharacterList) {
	for name, slot := range o.s.portraits {
		match, ok := list.ByName(name)
		if ok && slot.portrait != nil && slot.portrait.Character == match {
			continue
		}
		delete(o.s.portraits, name)
	}
}

// Prefetch は全トピックのアドバイスをキャッシュに温め、同時にキャラクターリストを取得します。
// アドバイスのスロットは変更しないので、表示中のトピックが上書きされることはないのだ。
// 各取得は独立しており、失敗はすべて errors.Join でまとめて返します。
func (o *Orchestrator) Prefetch(ctx context.Context) error {
	o.mu.Lock()
	profile, result, err := o.resultContext("prefetch")
	resultID := o.s.resultID
	o.mu.Unlock()
	if err != nil {
		return err
	}

	start := time.Now()
	// 1件の失敗で他の取得を取り消さないよう、共有キャンセルのない Group を使うのだ
	var eg errgroup.Group
	errs := make([]error, len(o.deps.Topics)+1)
	for i, topic := range o.deps.Topics {
		eg.Go(func() error {
			if _, err := o.fetchAdvice(ctx, adviceCacheKey(resultID, topic.ID), profile, result, topic); err != nil {
				errs[i] = fmt.Errorf("トピック %s のアドバイス取得に失敗しました: %w", topic.ID, err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		if _, err := o.RequestCharacters(ctx); err != nil && !isSuperseded(err) {
			errs[len(errs)-1] = fmt.Errorf("キャラクターの取得に失敗しました: %w", err)
		}
		return nil
	})

	_ = eg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("事前取得が完了しました", "topics", len(o.deps.Topics), "duration", time.Since(start).Round(time.Millisecond))
	return nil
}
