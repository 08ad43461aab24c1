package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shouni/go-cact-kit/pkg/domain"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// classifyError はプロバイダのエラーを認証・クォータ・不正リクエストなどに分類するのだ。
// オーケストレーターは分類に関係なく「後で再試行」として扱います。
func classifyError(op string, err error) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	kind := domain.ProviderTransport
	var blocked *gemini.APIResponseError
	switch {
	case errors.As(err, &blocked):
		// 安全フィルターでのブロックや空応答は通信成功後の論理エラーなのだ
		kind = domain.ProviderEmpty
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.ProviderTimeout
	case errors.Is(err, context.Canceled):
		kind = domain.ProviderTransport
	default:
		if code, ok := apiErrorCode(err); ok {
			kind = kindFromStatus(code)
		}
	}
	return &domain.ProviderError{Kind: kind, Op: op, Err: err}
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

func kindFromStatus(code int) domain.ProviderErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ProviderAuth
	case http.StatusTooManyRequests:
		return domain.ProviderQuota
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge:
		return domain.ProviderBadRequest
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return domain.ProviderTimeout
	default:
		return domain.ProviderTransport
	}
}

func emptyResponse(op string) error {
	return &domain.ProviderError{Kind: domain.ProviderEmpty, Op: op, Err: fmt.Errorf("AIからの応答が空です")}
}
