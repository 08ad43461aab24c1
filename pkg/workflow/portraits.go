package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/go-cact-kit/pkg/domain"

	"golang.org/x/sync/errgroup"
)

// PortraitBatch は複数キャラクターの肖像画生成結果です。
// 1件の失敗が他のキャラクターに影響しないよう、エラーはキャラクター単位で保持するのだ。
type PortraitBatch struct {
	Portraits map[string]*domain.Portrait
	Errors    map[string]error
}

// Err は失敗をまとめたエラーを返します。全件成功なら nil なのだ。
func (b PortraitBatch) Err() error {
	errs := make([]error, 0, len(b.Errors))
	for name, err := range b.Errors {
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return errors.Join(errs...)
}

// GeneratePortraits は names の肖像画を並列に生成します。
// 並列度は limit で制限し、プロバイダへの流量は共有の RateLimiter が制御するのだ。
func GeneratePortraits(ctx context.Context, s Session, names []string, selfie *domain.Selfie, limit int) PortraitBatch {
	batch := PortraitBatch{
		Portraits: make(map[string]*domain.Portrait, len(names)),
		Errors:    make(map[string]error),
	}
	var mu sync.Mutex
	start := time.Now()

	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for _, name := range names {
		eg.Go(func() error {
			p, err := s.RequestPortrait(ctx, name, selfie)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Errors[name] = err
				return nil
			}
			batch.Portraits[name] = p
			return nil
		})
	}
	_ = eg.Wait()

	slog.Info("肖像画の一括生成が完了しました",
		"success", len(batch.Portraits),
		"failed", len(batch.Errors),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return batch
}
