package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"

	"github.com/gatorlabs/labbot/internal/model"
)

// ReminderRepository is the durable dedup store backed by Postgres. The
// (occurrence_id, lead_time_seconds) primary key carries the uniqueness
// guarantee; MarkSent relies on ON CONFLICT DO NOTHING as the conditional
// write, so concurrent marks of the same key are harmless.
type ReminderRepository struct {
	db       *dbpg.DB
	strategy retry.Strategy
}

func NewReminderRepository(db *dbpg.DB, strategy retry.Strategy) *ReminderRepository {
	return &ReminderRepository{
		db:       db,
		strategy: strategy,
	}
}

func (r *ReminderRepository) HasSent(ctx context.Context, occurrenceID string, lead time.Duration) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM reminders WHERE occurrence_id = $1 AND lead_time_seconds = $2
	)`

	row, err := r.db.QueryRowWithRetry(ctx, r.strategy, query, occurrenceID, int64(lead.Seconds()))
	if err != nil {
		return false, fmt.Errorf("dedup store: lookup (%s, %s): %w", occurrenceID, lead, err)
	}

	var sent bool
	if err := row.Scan(&sent); err != nil {
		return false, fmt.Errorf("dedup store: scan lookup result: %w", err)
	}
	return sent, nil
}

func (r *ReminderRepository) MarkSent(ctx context.Context, occurrenceID string, lead time.Duration, sentAt time.Time) error {
	query := `INSERT INTO reminders (occurrence_id, lead_time_seconds, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (occurrence_id, lead_time_seconds) DO NOTHING`

	_, err := r.db.ExecWithRetry(ctx, r.strategy, query, occurrenceID, int64(lead.Seconds()), sentAt.UTC())
	if err != nil {
		return fmt.Errorf("dedup store: mark (%s, %s): %w", occurrenceID, lead, err)
	}
	return nil
}

func (r *ReminderRepository) ListSentSince(ctx context.Context, since time.Time) ([]model.ReminderRecord, error) {
	query := `SELECT occurrence_id, lead_time_seconds, sent_at
		FROM reminders
		WHERE sent_at >= $1
		ORDER BY sent_at DESC`

	rows, err := r.db.QueryWithRetry(ctx, r.strategy, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("dedup store: list since %s: %w", since, err)
	}
	defer rows.Close()

	records := []model.ReminderRecord{}
	for rows.Next() {
		var (
			occurrenceID string
			leadSeconds  int64
			sentAt       time.Time
		)
		if err := rows.Scan(&occurrenceID, &leadSeconds, &sentAt); err != nil {
			return nil, fmt.Errorf("dedup store: scan record: %w", err)
		}
		records = append(records, model.ReminderRecord{
			OccurrenceID: occurrenceID,
			LeadTime:     time.Duration(leadSeconds) * time.Second,
			SentAt:       sentAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dedup store: iterate records: %w", err)
	}
	return records, nil
}

func (r *ReminderRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM reminders WHERE sent_at < $1`

	res, err := r.db.ExecWithRetry(ctx, r.strategy, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("dedup store: prune before %s: %w", cutoff, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("dedup store: prune result: %w", err)
	}
	return affected, nil
}
