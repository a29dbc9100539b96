package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"auth-sync/internal/domain"

	kratos "github.com/ory/kratos-client-go"
)

// kratosErrorBody covers both shapes Kratos answers with: a self-service flow
// carrying ui messages, and the generic {"error": {...}} envelope.
type kratosErrorBody struct {
	UI *struct {
		Messages []kratosText `json:"messages"`
		Nodes    []struct {
			Messages []kratosText `json:"messages"`
		} `json:"nodes"`
	} `json:"ui"`
	Error *struct {
		Code    int    `json:"code"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

type kratosText struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// classifyError turns a failed SDK call into an *IdentityError. The status
// code decides the kind; the response body supplies the display message.
func classifyError(op string, resp *http.Response, err error) *domain.IdentityError {
	message := serviceMessage(err)

	if resp == nil {
		return domain.NewIdentityError(domain.KindTransport, op, "", err)
	}

	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		// Answered, but the payload did not decode.
		return domain.NewIdentityError(domain.KindTransport, op,
			"unexpected response from identity service", err)
	case status == http.StatusBadRequest,
		status == http.StatusConflict,
		status == http.StatusGone,
		status == http.StatusUnprocessableEntity:
		return domain.NewIdentityError(domain.KindValidation, op, message, err)
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound:
		if op == OpStartSession || op == OpCreateAccount {
			return domain.NewIdentityError(domain.KindValidation, op, message, err)
		}
		return domain.NewIdentityError(domain.KindNoSession, op, message, err)
	default:
		return domain.NewIdentityError(domain.KindTransport, op, message,
			fmt.Errorf("kratos returned status %d: %w", status, err))
	}
}

// serviceMessage extracts the most specific human-readable text from a
// Kratos error body. Returns "" when there is none.
func serviceMessage(err error) string {
	var apiErr *kratos.GenericOpenAPIError
	if !errors.As(err, &apiErr) {
		return ""
	}

	raw := apiErr.Body()
	if len(raw) == 0 {
		return ""
	}

	var body kratosErrorBody
	if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
		return truncateString(strings.TrimSpace(string(raw)), 200)
	}

	if body.UI != nil {
		for _, msg := range body.UI.Messages {
			if msg.Text != "" {
				return msg.Text
			}
		}
		for _, node := range body.UI.Nodes {
			for _, msg := range node.Messages {
				if msg.Type == "error" && msg.Text != "" {
					return msg.Text
				}
			}
		}
	}
	if body.Error != nil {
		if body.Error.Reason != "" {
			return body.Error.Reason
		}
		if body.Error.Message != "" {
			return body.Error.Message
		}
	}
	return body.Message
}

// truncateString cuts s to at most maxLength bytes without splitting a rune.
func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
