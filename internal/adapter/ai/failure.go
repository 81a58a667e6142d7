package ai

import (
	"errors"
	"strings"
)

// FailureKind tells the orchestrator how to react to a failed attempt.
type FailureKind int

const (
	// Unclassified failures abort the search and fall back immediately.
	Unclassified FailureKind = iota
	// CredentialExhausted retires the credential for the rest of the process.
	CredentialExhausted
	// ModelUnavailable moves on to the next model with the same credential.
	ModelUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case CredentialExhausted:
		return "credential_exhausted"
	case ModelUnavailable:
		return "model_unavailable"
	default:
		return "unclassified"
	}
}

// Credential markers are checked first; a quota error that also says
// "not found" is still a credential problem.
var (
	credentialMarkers = []string{
		"quota",
		"resource_exhausted",
		"resource-exhausted",
		"resource exhausted",
		"429",
		"rate limit",
		"permission",
		"403",
		"unauthorized",
		"invalid api key",
		"api key not valid",
	}
	modelMarkers = []string{
		"not found",
		"404",
		"not supported",
		"does not exist",
	}
)

// ClassifyFailure maps a failure description to a FailureKind using
// case-insensitive substring matching.
func ClassifyFailure(description string) FailureKind {
	d := strings.ToLower(description)
	if containsAny(d, credentialMarkers) {
		return CredentialExhausted
	}
	if containsAny(d, modelMarkers) {
		return ModelUnavailable
	}
	return Unclassified
}

// DescribeError flattens err (and anything it wraps via errors.Join) into the
// description ClassifyFailure expects.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		parts := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			parts = append(parts, DescribeError(e))
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
