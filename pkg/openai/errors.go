package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

const insufficientQuota = "insufficient_quota"

// classify tags err as retryable when the same request may succeed later:
// rate limits, server errors, timeouts and dropped connections.
func classify(err error) *domain.EngineError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.EngineError{Err: err, Retryable: retryableStatus(apiErr.HTTPStatusCode) && !quotaExhausted(apiErr)}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.EngineError{Err: err, Retryable: reqErr.HTTPStatusCode == 0 || retryableStatus(reqErr.HTTPStatusCode)}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &domain.EngineError{Err: err, Retryable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &domain.EngineError{Err: err, Retryable: true}
	}

	return &domain.EngineError{Err: err, Retryable: false}
}

func retryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code == http.StatusTooManyRequests:
		return true
	case code >= http.StatusInternalServerError:
		return true
	}
	return false
}

func quotaExhausted(apiErr *openai.APIError) bool {
	return apiErr.Type == insufficientQuota || fmt.Sprint(apiErr.Code) == insufficientQuota
}
