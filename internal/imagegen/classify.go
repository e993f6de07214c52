package imagegen

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Kind is the provider-independent error taxonomy surfaced to clients.
type Kind string

const (
	KindNetwork        Kind = "NetworkError"
	KindAuthentication Kind = "AuthenticationError"
	KindPermission     Kind = "PermissionError"
	KindRateLimit      Kind = "RateLimitError"
	KindQuotaExceeded  Kind = "QuotaExceededError"
	KindUnavailable    Kind = "ProviderUnavailableError"
	KindTimeout        Kind = "TimeoutError"
	KindCancelled      Kind = "CancelledError"
	KindUnknown        Kind = "UnknownError"
)

// kindMessages are shared by the poem, translation and image steps.
var kindMessages = map[Kind]string{
	KindNetwork:        "网络连接失败，请检查网络后重试",
	KindAuthentication: "服务认证失败，请检查API密钥",
	KindPermission:     "没有访问该服务的权限",
	KindRateLimit:      "请求过于频繁，请稍后再试",
	KindQuotaExceeded:  "服务额度已用完",
	KindUnavailable:    "服务暂时不可用，请稍后再试",
	KindTimeout:        "请求超时，请稍后再试",
	KindCancelled:      "请求已取消",
	KindUnknown:        "生成失败，请稍后再试",
}

// Message returns the user-facing text for k.
func (k Kind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return kindMessages[KindUnknown]
}

// HTTPStatus is the status the API boundary answers with for k.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindRateLimit, KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindAuthentication, KindPermission, KindUnavailable, KindNetwork:
		return http.StatusBadGateway
	case KindCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Classify maps any error to a Kind. It never panics; unrecognized errors
// are KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var f *Failure
	if errors.As(err, &f) && f.Kind != "" {
		return f.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	var uerr *url.Error
	var operr *net.OpError
	var dnserr *net.DNSError
	if errors.As(err, &operr) || errors.As(err, &dnserr) || errors.As(err, &uerr) {
		return KindNetwork
	}
	return KindUnknown
}

// ClassifyStatus maps an HTTP status code to a Kind.
func ClassifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindPermission
	case status == http.StatusPaymentRequired:
		return KindQuotaExceeded
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindUnavailable
	default:
		return KindUnknown
	}
}

// openAICodes maps OpenAI error.code / error.type values.
var openAICodes = map[string]Kind{
	"invalid_api_key":                      KindAuthentication,
	"invalid_authentication":               KindAuthentication,
	"insufficient_quota":                   KindQuotaExceeded,
	"billing_hard_limit_reached":           KindQuotaExceeded,
	"rate_limit_exceeded":                  KindRateLimit,
	"requests":                             KindRateLimit,
	"tokens":                               KindRateLimit,
	"server_error":                         KindUnavailable,
	"engine_overloaded":                    KindUnavailable,
	"unsupported_country_region_territory": KindPermission,
	"model_not_found":                      KindPermission,
}

// ClassifyOpenAI classifies a synchronous-provider failure from its status
// and structured error code, preferring the code when it is recognized.
func ClassifyOpenAI(status int, code, typ string) Kind {
	if k, ok := openAICodes[code]; ok {
		return k
	}
	if k, ok := openAICodes[typ]; ok {
		return k
	}
	return ClassifyStatus(status)
}

// ClassifyKling maps the async provider's embedded business code.
func ClassifyKling(code int) Kind {
	switch code {
	case 1000, 1001, 1002, 1003, 1004:
		return KindAuthentication
	case 1100, 1101, 1102:
		return KindQuotaExceeded
	case 1103:
		return KindPermission
	case 1302, 1303:
		return KindRateLimit
	case 5000, 5001:
		return KindUnavailable
	case 5002:
		return KindTimeout
	default:
		return KindUnknown
	}
}

// ClassifyArk maps the volcengine Ark error code strings.
func ClassifyArk(code string) Kind {
	c := strings.ToLower(code)
	switch {
	case c == "":
		return KindUnknown
	case strings.Contains(c, "authentication"), strings.Contains(c, "invalidapikey"), strings.Contains(c, "unauthorized"):
		return KindAuthentication
	case strings.Contains(c, "accessdenied"), strings.Contains(c, "permission"), strings.Contains(c, "notactivated"):
		return KindPermission
	case strings.Contains(c, "quota"), strings.Contains(c, "accountoverdue"), strings.Contains(c, "insufficient"):
		return KindQuotaExceeded
	case strings.Contains(c, "ratelimit"), strings.Contains(c, "toomanyrequests"):
		return KindRateLimit
	case strings.Contains(c, "timeout"):
		return KindTimeout
	case strings.Contains(c, "serviceunavailable"), strings.Contains(c, "internalserviceerror"), strings.Contains(c, "overloaded"):
		return KindUnavailable
	default:
		return KindUnknown
	}
}
