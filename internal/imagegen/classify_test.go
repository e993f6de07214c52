package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"failure", &Failure{Kind: KindQuotaExceeded}, KindQuotaExceeded},
		{"wrapped failure", fmt.Errorf("dispatch: %w", &Failure{Kind: KindRateLimit}), KindRateLimit},
		{"cancelled", fmt.Errorf("poll: %w", context.Canceled), KindCancelled},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"dial", &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, KindNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.invalid"}, KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]Kind{
		http.StatusUnauthorized:        KindAuthentication,
		http.StatusForbidden:           KindPermission,
		http.StatusPaymentRequired:     KindQuotaExceeded,
		http.StatusTooManyRequests:     KindRateLimit,
		http.StatusGatewayTimeout:      KindTimeout,
		http.StatusServiceUnavailable:  KindUnavailable,
		http.StatusInternalServerError: KindUnavailable,
		http.StatusBadRequest:          KindUnknown,
	}
	for status, want := range cases {
		assert.Equal(t, want, ClassifyStatus(status), "status %d", status)
	}
}

func TestClassifyOpenAI_CodeWins(t *testing.T) {
	assert.Equal(t, KindQuotaExceeded, ClassifyOpenAI(429, "insufficient_quota", "insufficient_quota"))
	assert.Equal(t, KindRateLimit, ClassifyOpenAI(429, "rate_limit_exceeded", ""))
	assert.Equal(t, KindAuthentication, ClassifyOpenAI(401, "invalid_api_key", ""))
	assert.Equal(t, KindUnavailable, ClassifyOpenAI(503, "", ""))
	assert.Equal(t, KindUnknown, ClassifyOpenAI(400, "content_policy_violation", "invalid_request_error"))
}

func TestClassifyKling(t *testing.T) {
	assert.Equal(t, KindAuthentication, ClassifyKling(1002))
	assert.Equal(t, KindQuotaExceeded, ClassifyKling(1102))
	assert.Equal(t, KindPermission, ClassifyKling(1103))
	assert.Equal(t, KindRateLimit, ClassifyKling(1302))
	assert.Equal(t, KindUnavailable, ClassifyKling(5000))
	assert.Equal(t, KindTimeout, ClassifyKling(5002))
	assert.Equal(t, KindUnknown, ClassifyKling(1201))
}

func TestClassifyArk(t *testing.T) {
	assert.Equal(t, KindAuthentication, ClassifyArk("AuthenticationError"))
	assert.Equal(t, KindRateLimit, ClassifyArk("RateLimitExceeded.EndpointRPMExceeded"))
	assert.Equal(t, KindQuotaExceeded, ClassifyArk("AccountOverdueError"))
	assert.Equal(t, KindUnknown, ClassifyArk("InvalidParameter"))
	assert.Equal(t, KindUnknown, ClassifyArk(""))
}

func TestKind_MessageAndStatus(t *testing.T) {
	assert.NotEmpty(t, KindTimeout.Message())
	assert.Equal(t, KindUnknown.Message(), Kind("Bogus").Message())
	assert.Equal(t, http.StatusTooManyRequests, KindQuotaExceeded.HTTPStatus())
	assert.Equal(t, http.StatusGatewayTimeout, KindTimeout.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, KindAuthentication.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindUnknown.HTTPStatus())
}

func TestKind_MessagesAreStepNeutral(t *testing.T) {
	for _, k := range []Kind{KindNetwork, KindAuthentication, KindPermission, KindRateLimit,
		KindQuotaExceeded, KindUnavailable, KindTimeout, KindCancelled, KindUnknown} {
		assert.NotContains(t, k.Message(), "图片", "%s is also used for poem failures", k)
	}
}
