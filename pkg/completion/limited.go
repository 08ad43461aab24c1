package completion

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limited は RateLimiter とタイムアウトで Client を包むデコレーターです。
// すべての呼び出しは有限時間で打ち切られるのだ。
type Limited struct {
	next         Client
	limiter      *rate.Limiter
	textTimeout  time.Duration
	imageTimeout time.Duration
}

// NewLimited は Limited を初期化します。limiter が nil の場合は制限なしなのだ。
func NewLimited(next Client, limiter *rate.Limiter, textTimeout, imageTimeout time.Duration) *Limited {
	return &Limited{
		next:         next,
		limiter:      limiter,
		textTimeout:  textTimeout,
		imageTimeout: imageTimeout,
	}
}

func (l *Limited) CompleteText(ctx context.Context, req Request) (string, error) {
	ctx, cancel := l.bound(ctx, l.textTimeout)
	defer cancel()

	if err := l.wait(ctx, "text"); err != nil {
		return "", err
	}
	text, err := l.next.CompleteText(ctx, req)
	if err != nil {
		return "", classifyError("text", err)
	}
	return text, nil
}

func (l *Limited) CompleteMultimodal(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := l.bound(ctx, l.imageTimeout)
	defer cancel()

	if err := l.wait(ctx, "multimodal"); err != nil {
		return nil, err
	}
	res, err := l.next.CompleteMultimodal(ctx, req)
	if err != nil {
		return nil, classifyError("multimodal", err)
	}
	return res, nil
}

func (l *Limited) bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (l *Limited) wait(ctx context.Context, op string) error {
	if l.limiter == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return classifyError(op, err)
	}
	return nil
}
