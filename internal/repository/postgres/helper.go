package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// StartRepositorySpan creates a new span for a repository operation
// Returns nil if Sentry is not available in the context
func StartRepositorySpan(ctx context.Context, repository, operation string, params map[string]interface{}) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, "repository."+repository+"."+operation)
	if span != nil {
		span.Description = "repository." + repository + "." + operation
		span.Op = "db.repository"
		span.SetData("repository", repository)
		span.SetData("operation", operation)
		for k, v := range params {
			span.SetData(k, v)
		}
	}
	return span
}

// FinishSpan safely finishes a span, handling nil spans
func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

// SetSpanError marks a span as failed
func SetSpanError(span *sentry.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.Status = sentry.SpanStatusInternalError
	span.SetData("error", err.Error())
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
