package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/otpas-api/internal/policy"
	"github.com/noah-isme/otpas-api/pkg/response"
)

// ContextPolicyRequestKey is the gin context key of the evaluated policy request.
const ContextPolicyRequestKey = "policyRequest"

const maxPeekBody = 1 << 20

type evaluator interface {
	Evaluate(ctx context.Context, req *policy.Request, chain ...policy.Policy) error
}

// Authorize runs chain against the caller and the request identifiers. Path
// parameters win over the query string, which wins over top-level JSON body fields.
func Authorize(engine evaluator, chain ...policy.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		req := policy.NewRequest(CurrentSubject(c), collectParams(c))
		req.Method = c.Request.Method
		if err := engine.Evaluate(c.Request.Context(), req, chain...); err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextPolicyRequestKey, req)
		c.Next()
	}
}

// PolicyRequest returns the request evaluated by the last Authorize on the route.
func PolicyRequest(c *gin.Context) (*policy.Request, bool) {
	value, exists := c.Get(ContextPolicyRequestKey)
	if !exists {
		return nil, false
	}
	req, ok := value.(*policy.Request)
	return req, ok && req != nil
}

func collectParams(c *gin.Context) map[string]string {
	params := make(map[string]string, len(policy.IdentifierParams))
	for _, name := range policy.IdentifierParams {
		if value := strings.TrimSpace(c.Param(name)); value != "" {
			params[name] = value
			continue
		}
		if value := strings.TrimSpace(c.Query(name)); value != "" {
			params[name] = value
		}
	}
	if len(params) == len(policy.IdentifierParams) {
		return params
	}
	for name, value := range peekJSONBody(c) {
		if _, exists := params[name]; !exists {
			params[name] = value
		}
	}
	return params
}

// peekJSONBody reads the identifier fields of a JSON body and puts the body back
// for the handler.
func peekJSONBody(c *gin.Context) map[string]string {
	if c.Request.Body == nil || !strings.HasPrefix(c.ContentType(), "application/json") {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBody))
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	found := make(map[string]string)
	for _, name := range policy.IdentifierParams {
		value, ok := fields[name]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil && strings.TrimSpace(text) != "" {
			found[name] = strings.TrimSpace(text)
		}
	}
	return found
}
