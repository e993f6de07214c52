// Package redact removes credentials from strings before they are logged or
// returned to clients. Provider error bodies can echo API keys, bearer tokens,
// request signatures and signed URLs, so every such string goes through here.
package redact

import "regexp"

const (
	RedactionPlaceholder    = "[REDACTED]"
	RedactedKeyPlaceholder  = "[REDACTED_KEY]"
	RedactedJWTPlaceholder  = "[REDACTED_JWT]"
	RedactedAuthPlaceholder = "[REDACTED_AUTH]"
)

var (
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)
	bearerRegex   = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/=]{8,}`)
	// OpenAI style secret keys: sk-..., sk-proj-..., sk-ant-...
	secretKeyRegex = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{8,}`)
	apiKeyRegex    = regexp.MustCompile(
		`(?i)(api[_-]?key|access[_-]?key|secret[_-]?key|secret|token|signature|x-signature)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)
	// Query string credentials in signed URLs.
	queryCredRegex = regexp.MustCompile(`(?i)([?&](?:key|api_key|token|signature|x-amz-signature|sig)=)[^&\s"']+`)

	rules = []struct {
		re          *regexp.Regexp
		replacement string
	}{
		{jwtTokenRegex, RedactedJWTPlaceholder},
		{bearerRegex, "Bearer " + RedactedAuthPlaceholder},
		{secretKeyRegex, RedactedKeyPlaceholder},
		{queryCredRegex, "${1}" + RedactionPlaceholder},
		{apiKeyRegex, RedactedKeyPlaceholder},
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
