package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/observability"
	"github.com/noah-isme/gema-eval-api/internal/repository"
)

// ReportSink receives the flattened report of every confirmed evaluation. It is never read back.
type ReportSink interface {
	Write(ctx context.Context, report models.EvaluationReport) error
}

// NewDatabaseReportSink appends reports to the reporting database.
func NewDatabaseReportSink(repo repository.ReportRepository, logger zerolog.Logger) ReportSink {
	return &databaseReportSink{
		repo:   repo,
		logger: logger.With().Str("component", "database_report_sink").Logger(),
	}
}

type databaseReportSink struct {
	repo   repository.ReportRepository
	logger zerolog.Logger
}

func (s *databaseReportSink) Write(ctx context.Context, report models.EvaluationReport) error {
	if err := s.repo.Create(ctx, &report); err != nil {
		observability.ReportWrites().WithLabelValues("database", "failure").Inc()
		return fmt.Errorf("insert evaluation report: %w", err)
	}
	observability.ReportWrites().WithLabelValues("database", "success").Inc()
	s.logger.Debug().Str("student_id", report.StudentID).Uint("report_id", report.ID).Msg("evaluation report stored")
	return nil
}

const natsFlushTimeout = 5 * time.Second

// reportEvent is the message published for every report on NATS.
type reportEvent struct {
	Report models.EvaluationReport `json:"report"`
	SentAt time.Time               `json:"sentAt"`
}

// NewNATSReportSink publishes reports as JSON messages on subject.
func NewNATSReportSink(conn *nats.Conn, subject string, logger zerolog.Logger) ReportSink {
	return &natsReportSink{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_report_sink").Logger(),
		now:     time.Now,
	}
}

type natsReportSink struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
	now     func() time.Time
}

func (s *natsReportSink) Write(ctx context.Context, report models.EvaluationReport) error {
	payload, err := encodeReportEvent(report, s.now())
	if err != nil {
		return err
	}

	if err := s.conn.Publish(s.subject, payload); err != nil {
		observability.ReportWrites().WithLabelValues("nats", "failure").Inc()
		return fmt.Errorf("publish evaluation report: %w", err)
	}
	// Publish only buffers; flushing surfaces broken connections to the caller.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, natsFlushTimeout)
		defer cancel()
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		observability.ReportWrites().WithLabelValues("nats", "failure").Inc()
		return fmt.Errorf("flush evaluation report: %w", err)
	}

	observability.ReportWrites().WithLabelValues("nats", "success").Inc()
	s.logger.Debug().Str("student_id", report.StudentID).Str("subject", s.subject).Msg("evaluation report published")
	return nil
}

func encodeReportEvent(report models.EvaluationReport, sentAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(reportEvent{Report: report, SentAt: sentAt.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode evaluation report: %w", err)
	}
	return payload, nil
}
