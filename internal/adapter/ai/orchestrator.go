package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/feedback-insights/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/feedback-insights/internal/adapter/observability"
)

// Generator performs one remote call with one credential and one model.
type Generator interface {
	Generate(ctx context.Context, credential, model, prompt string) (string, error)
}

// Pacer throttles calls per key. Errors are treated as allow.
type Pacer interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// errAttemptTimeout marks an attempt that hit its own deadline while the caller was still waiting.
var errAttemptTimeout = errors.New("attempt deadline exceeded")

// cursor is the per-request position in the credential × model grid.
type cursor struct {
	cred  int
	model int
}

// Orchestrator walks credentials and models for one logical request at a time.
type Orchestrator struct {
	provider       string
	pool           *CredentialPool
	models         []string
	gen            Generator
	pacer          Pacer
	attemptTimeout time.Duration
	paceMaxWait    time.Duration
}

// Call runs prompt through the credential × model search. On success the raw
// reply is handed to parse, including an empty reply from a call that
// returned no text; a parse error ends the search like an
// unclassified failure. Call reports whether parse accepted a reply, and the
// caller falls back locally when it did not. It never returns an error.
func (o *Orchestrator) Call(ctx context.Context, operation, prompt string, parse func(reply string) error) bool {
	ctx, span := otel.Tracer("ai.orchestrator").Start(ctx, "ai."+operation)
	defer span.End()
	lg := observability.LoggerFromContext(ctx).With(slog.String("provider", o.provider), slog.String("op", operation))

	fallback := func(reason string, attrs ...any) bool {
		observability.ObserveAIFallback(operation, reason)
		span.SetAttributes(attribute.String("ai.fallback_reason", reason))
		lg.Warn("ai fallback", append([]any{slog.String("reason", reason)}, attrs...)...)
		return false
	}

	if len(o.models) == 0 {
		return fallback("no_models")
	}
	start, ok := o.pool.Start()
	if !ok {
		return fallback("no_credentials")
	}

	cur := cursor{cred: start}
	for tried := 0; tried < o.pool.Size(); tried++ {
		credential := o.pool.at(cur.cred)
		fp := Fingerprint(credential)
		retired := false

		for cur.model = 0; cur.model < len(o.models); cur.model++ {
			model := o.models[cur.model]
			reply, err := o.attempt(ctx, operation, credential, model, prompt)
			if err == nil {
				if perr := parse(reply); perr != nil {
					observability.AIAttemptsTotal.WithLabelValues(operation, "unparseable").Inc()
					return fallback("unparseable", slog.String("model", model), slog.String("credential", fp), slog.Any("error", perr))
				}
				o.pool.Promote(cur.cred)
				span.SetAttributes(attribute.String("ai.model", model), attribute.String("ai.credential", fp))
				lg.Debug("ai call succeeded", slog.String("model", model), slog.String("credential", fp))
				return true
			}
			if ctx.Err() != nil {
				span.SetStatus(codes.Error, "canceled")
				return fallback("canceled", slog.Any("error", ctx.Err()))
			}

			kind := classifyAttempt(err)
			lg.Warn("ai attempt failed",
				slog.String("model", model),
				slog.String("credential", fp),
				slog.String("kind", kind.String()),
				slog.Any("error", err))

			switch kind {
			case ModelUnavailable:
				continue
			case CredentialExhausted:
				observability.SetCredentialsExhausted(o.pool.MarkExhausted(cur.cred))
				retired = true
			default:
				span.SetStatus(codes.Error, "unclassified failure")
				return fallback("unclassified", slog.String("model", model), slog.Any("error", err))
			}
			break
		}

		if !retired {
			lg.Info("all models unavailable for credential; rotating", slog.String("credential", fp))
		}
		next, ok := o.pool.NextUsable(cur.cred)
		if !ok {
			return fallback("credentials_exhausted")
		}
		cur = cursor{cred: next}
	}
	return fallback("search_exhausted")
}

func (o *Orchestrator) attempt(ctx context.Context, operation, credential, model, prompt string) (string, error) {
	o.pace(ctx, credential)

	actx, cancel := ctx, context.CancelFunc(func() {})
	if o.attemptTimeout > 0 {
		actx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
	}
	defer cancel()

	ctxSpan, span := otel.Tracer("ai.orchestrator").Start(actx, "ai.attempt")
	span.SetAttributes(attribute.String("ai.model", model), attribute.String("ai.credential", Fingerprint(credential)))
	defer span.End()

	start := time.Now()
	reply, err := o.gen.Generate(ctxSpan, credential, model, prompt)
	if errors.Is(err, gemini.ErrEmptyReply) {
		// the call itself succeeded; the parser decides what no text means
		span.AddEvent("empty reply", trace.WithAttributes(attribute.String("ai.reply_error", err.Error())))
		reply, err = "", nil
	}
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %v", errAttemptTimeout, o.attemptTimeout, err)
	}
	outcome := "ok"
	if err != nil {
		outcome = classifyAttempt(err).String()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	observability.ObserveAIAttempt(o.provider, operation, outcome, time.Since(start))
	return reply, err
}

// classifyAttempt treats a per-attempt timeout as a slow or stuck model.
func classifyAttempt(err error) FailureKind {
	if errors.Is(err, errAttemptTimeout) {
		return ModelUnavailable
	}
	return ClassifyFailure(DescribeError(err))
}

// pace waits for the credential's bucket, bounded by paceMaxWait. Limiter
// errors and denials beyond the cap never block the attempt.
func (o *Orchestrator) pace(ctx context.Context, credential string) {
	if o.pacer == nil {
		return
	}
	allowed, retryAfter, err := o.pacer.Allow(ctx, PaceKey(credential), 1)
	if err != nil || allowed || retryAfter <= 0 {
		return
	}
	if retryAfter > o.paceMaxWait {
		retryAfter = o.paceMaxWait
	}
	t := time.NewTimer(retryAfter)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// PaceKey is the limiter bucket key for a credential.
func PaceKey(credential string) string { return "gemini:" + Fingerprint(credential) }
