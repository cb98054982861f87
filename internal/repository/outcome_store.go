package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	pkgch "TradeGate/pkg/clickhouse"
	applogger "TradeGate/pkg/logger"
)

// Schema statements for the outcomes table, applied idempotently at startup.
var OutcomeSchema = []string{
	`CREATE TABLE IF NOT EXISTS decision_outcomes (
		evaluation_id String,
		asset_id      String,
		date          DateTime,
		action        LowCardinality(String),
		risk_fraction Float64,
		reason_code   LowCardinality(String),
		audit_trail   String,
		created_at    DateTime DEFAULT now()
	) ENGINE = MergeTree()
	ORDER BY (asset_id, date)`,
}

// CHOutcomeStore implements OutcomeStore backed by ClickHouse. The audit
// trail is stored as a JSON column so the read path can reconstruct it
// without a wide sparse schema.
type CHOutcomeStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHOutcomeStore(ch *pkgch.Client) *CHOutcomeStore {
	return &CHOutcomeStore{ch: ch, db: ch.DB(), table: "decision_outcomes"}
}

// SetLogger injects a structured logger.
func (s *CHOutcomeStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures the outcomes table exists.
func (s *CHOutcomeStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, OutcomeSchema)
}

func (s *CHOutcomeStore) Store(ctx context.Context, o *models.PipelineOutcome) error {
	start := time.Now()
	trail, err := sonic.Marshal(o.AuditTrail)
	if err != nil {
		return fmt.Errorf("marshal audit trail: %w", err)
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (evaluation_id, asset_id, date, action, risk_fraction, reason_code, audit_trail) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)
	_, err = s.db.ExecContext(ctx, q,
		o.AuditTrail.EvaluationID,
		o.AssetID,
		o.Date,
		string(o.Action),
		o.RiskFraction,
		string(o.ReasonCode),
		string(trail),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_outcome error",
				applogger.String("asset", o.AssetID),
				applogger.String("reason", string(o.ReasonCode)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store outcome: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse store_outcome ok",
			applogger.String("asset", o.AssetID),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHOutcomeStore) Query(ctx context.Context, assetID string, limit int) ([]*models.PipelineOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(
		"SELECT asset_id, date, action, risk_fraction, reason_code, audit_trail FROM %s WHERE asset_id = ? ORDER BY date DESC LIMIT ?",
		s.table,
	)
	rows, err := s.db.QueryContext(ctx, q, assetID, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query_outcomes error",
				applogger.String("asset", assetID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PipelineOutcome, 0, limit)
	for rows.Next() {
		var (
			o      models.PipelineOutcome
			action string
			reason string
			trail  string
		)
		if err := rows.Scan(&o.AssetID, &o.Date, &action, &o.RiskFraction, &reason, &trail); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Action = models.Action(action)
		o.ReasonCode = models.ReasonCode(reason)
		if err := sonic.UnmarshalString(trail, &o.AuditTrail); err != nil {
			return nil, fmt.Errorf("unmarshal audit trail: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (s *CHOutcomeStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHOutcomeStore) Close() error {
	return nil // connection pool is managed by pkg/clickhouse
}

var _ domrepo.OutcomeStore = (*CHOutcomeStore)(nil)
