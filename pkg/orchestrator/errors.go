package orchestrator

import (
	"errors"

	"github.com/shouni/go-cact-kit/pkg/domain"
)

var (
	// ErrInvalidStage は現在のステージでは実行できない操作を表すのだ。
	ErrInvalidStage = errors.New("現在のステージではこの操作を実行できません")
	// ErrSuperseded は結果が届く前に新しいリクエストで置き換えられたことを表します。
	// 古い結果は状態に反映されずに破棄されるのだ。
	ErrSuperseded = errors.New("新しいリクエストに置き換えられたため結果を破棄しました")
)

// userMessage はスロットに表示するユーザー向けメッセージを組み立てます。
func userMessage(err error) string {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case domain.ProviderAuth:
			return "API key tidak valid atau tidak punya akses."
		case domain.ProviderQuota:
			return "Kuota AI habis, coba lagi sebentar lagi."
		case domain.ProviderTimeout:
			return "AI terlalu lama merespons, coba lagi."
		}
		return "Gagal menghubungi AI, coba lagi."
	}
	var me *domain.MalformedResponseError
	if errors.As(err, &me) {
		return "Jawaban AI tidak bisa dibaca, coba lagi."
	}
	var re *domain.RenderError
	if errors.As(err, &re) {
		return "Gagal memproses gambar, coba lagi."
	}
	return "Terjadi kesalahan, coba lagi."
}
