package observability

import (
	"errors"
	"strings"
	"time"

	pkgerrors "user-pages-service/pkg/errors"
)

func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}
	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func classifyDBErr(err error) string {
	var (
		notFound *pkgerrors.NotFoundError
		exists   *pkgerrors.AlreadyExistsError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &exists):
		return "unique_violation"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	case strings.Contains(msg, "invalid search query"):
		return "invalid_query"
	default:
		return "unknown"
	}
}
