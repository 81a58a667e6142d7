package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		want FailureKind
	}{
		{"gemini status 429 RESOURCE_EXHAUSTED: Quota exceeded for metric", CredentialExhausted},
		{"Resource exhausted", CredentialExhausted},
		{"resource-exhausted", CredentialExhausted},
		{"Rate limit reached for requests", CredentialExhausted},
		{"gemini status 403 PERMISSION_DENIED: caller does not have permission", CredentialExhausted},
		{"401 Unauthorized", CredentialExhausted},
		{"API key not valid. Please pass a valid API key.", CredentialExhausted},
		{"invalid api key", CredentialExhausted},
		{"quota exceeded; model not found", CredentialExhausted},
		{"gemini status 404 NOT_FOUND: models/gemini-x is not found for API version v1beta", ModelUnavailable},
		{"model is not supported for generateContent", ModelUnavailable},
		{"the requested model does not exist", ModelUnavailable},
		{"connection reset by peer", Unclassified},
		{"gemini status 500 INTERNAL: internal error", Unclassified},
		{"", Unclassified},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyFailure(tt.desc), tt.desc)
	}
}

func TestDescribeError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", DescribeError(nil))

	wrapped := fmt.Errorf("op=gemini.generate: %w", errors.New("status 404"))
	assert.Equal(t, "op=gemini.generate: status 404", DescribeError(wrapped))
	assert.Equal(t, ModelUnavailable, ClassifyFailure(DescribeError(wrapped)))

	joined := errors.Join(errors.New("first"), errors.New("quota exceeded"))
	assert.Equal(t, "first; quota exceeded", DescribeError(joined))
	assert.Equal(t, CredentialExhausted, ClassifyFailure(DescribeError(joined)))
}

func TestFailureKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "unclassified", Unclassified.String())
	assert.Equal(t, "credential_exhausted", CredentialExhausted.String())
	assert.Equal(t, "model_unavailable", ModelUnavailable.String())
}
