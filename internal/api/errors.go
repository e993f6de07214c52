package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/yangwenmai/cloudpoem/internal/engine"
	"github.com/yangwenmai/cloudpoem/internal/imagegen"
	"github.com/yangwenmai/cloudpoem/internal/prompt"
	"github.com/yangwenmai/cloudpoem/internal/redact"
)

// Error codes that are not failure kinds.
const (
	codeValidation    = "ValidationError"
	codeConfiguration = "ConfigurationError"
	codeNotFound      = "NotFound"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// fieldMessages are the user-facing messages for missing or invalid input.
var fieldMessages = map[string]string{
	"mood":   "请提供心情描述",
	"prompt": "请提供图片描述",
	"poetry": "请提供图片描述",
	"audio":  "请提供音频文件",
}

// upstreamStatus is implemented by LLM client errors that carry the HTTP
// status of the upstream API.
type upstreamStatus interface {
	UpstreamStatus() int
}

func writeValidation(w http.ResponseWriter, field, details string) {
	msg, ok := fieldMessages[field]
	if !ok {
		msg = "请求参数无效"
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Details: details, Code: codeValidation})
}

// writeStructError reports the first validator failure on a request struct.
func writeStructError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		writeValidation(w, "", err.Error())
		return
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "excluded_with":
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "prompt 与 poetry 只能提供其一",
			Details: fe.Field() + " " + fe.Tag(),
			Code:    codeValidation,
		})
	case "max":
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "输入内容过长",
			Details: fe.Field() + " exceeds " + fe.Param() + " characters",
			Code:    codeValidation,
		})
	default:
		writeValidation(w, fe.Field(), fe.Field()+" "+fe.Tag())
	}
}

// writeError maps a studio error onto the error envelope. Details are
// redacted before they leave the process.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *prompt.ValidationError
	if errors.As(err, &verr) {
		writeValidation(w, verr.Field, verr.Error())
		return
	}

	if errors.Is(err, engine.ErrLLMNotConfigured) ||
		errors.Is(err, engine.ErrTranscriberNotConfigured) ||
		errors.Is(err, imagegen.ErrNoProvider) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "服务未配置，请联系管理员",
			Details: err.Error(),
			Code:    codeConfiguration,
		})
		return
	}

	kind := imagegen.Classify(err)
	var us upstreamStatus
	if kind == imagegen.KindUnknown && errors.As(err, &us) {
		kind = imagegen.ClassifyStatus(us.UpstreamStatus())
	}

	details := redact.Error(err)
	var f *imagegen.Failure
	if errors.As(err, &f) {
		details = redact.String(f.Message)
	}

	step := ""
	var serr *engine.StepError
	if errors.As(err, &serr) {
		step = serr.StepName()
	}

	status := kind.HTTPStatus()
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"path", r.URL.Path,
		"step", step,
		"kind", kind,
		"error", redact.Error(err),
	)

	writeJSON(w, status, errorResponse{Error: kind.Message(), Details: details, Code: string(kind)})
}
