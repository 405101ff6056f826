package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

// optional filters: a NULL argument disables its condition
const filterClause = `($1::text IS NULL OR user_id = $1) AND ($2::timestamptz IS NULL OR %[1]s >= $2) AND ($3::timestamptz IS NULL OR %[1]s <= $3)`

type (
	pageViewRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		Path      string    `db:"path"`
		Source    string    `db:"source"`
		CreatedAt time.Time `db:"created_at"`
	}

	heartbeatRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	sessionRow struct {
		ID       string    `db:"id"`
		UserID   string    `db:"user_id"`
		Duration int64     `db:"duration"`
		EndTime  time.Time `db:"end_time"`
	}
)

type trackingRepository struct {
	db *sqlx.DB
}

func NewTrackingRepository(db *sqlx.DB) tracking.Repository {
	return &trackingRepository{db: db}
}

func (repo *trackingRepository) CreatePageView(ctx context.Context, pv tracking.PageView) error {
	row := pageViewRow{ID: pv.ID, UserID: pv.UserID, Path: pv.Path, Source: string(pv.Source), CreatedAt: pv.Timestamp.UTC()}
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO tracking_page_view (id, user_id, path, source, created_at) VALUES (:id, :user_id, :path, :source, :created_at)`,
		row,
	)
	return errors.Wrap(err, "inserting tracking_page_view")
}

func (repo *trackingRepository) CreateHeartbeat(ctx context.Context, hb tracking.Heartbeat) error {
	row := heartbeatRow{ID: hb.ID, UserID: hb.UserID, CreatedAt: hb.Timestamp.UTC()}
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO tracking_heartbeat (id, user_id, created_at) VALUES (:id, :user_id, :created_at)`,
		row,
	)
	return errors.Wrap(err, "inserting tracking_heartbeat")
}

func (repo *trackingRepository) CreateSession(ctx context.Context, ss tracking.SessionSummary) error {
	row := sessionRow{ID: ss.ID, UserID: ss.UserID, Duration: ss.Duration, EndTime: ss.EndTime.UTC()}
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO tracking_session (id, user_id, duration, end_time) VALUES (:id, :user_id, :duration, :end_time)`,
		row,
	)
	return errors.Wrap(err, "inserting tracking_session")
}

func filterArgs(filter tracking.QueryFilter) []interface{} {
	return []interface{}{
		null.NewString(filter.UserID, filter.UserID != ""),
		null.NewTime(filter.From.UTC(), !filter.From.IsZero()),
		null.NewTime(filter.To.UTC(), !filter.To.IsZero()),
	}
}

func where(timeColumn string) string {
	return " WHERE " + fmt.Sprintf(filterClause, timeColumn)
}

func (repo *trackingRepository) QueryPageViews(ctx context.Context, filter tracking.QueryFilter) ([]tracking.PageView, error) {
	var rows []pageViewRow
	q := "SELECT id, user_id, path, source, created_at FROM tracking_page_view" + where("created_at") + " ORDER BY created_at DESC"
	if err := repo.db.SelectContext(ctx, &rows, q, filterArgs(filter)...); err != nil {
		return nil, errors.Wrap(err, "selecting tracking_page_view")
	}

	res := make([]tracking.PageView, 0, len(rows))
	for _, r := range rows {
		res = append(res, tracking.PageView{
			ID:        r.ID,
			UserID:    r.UserID,
			Path:      r.Path,
			Source:    tracking.Source(r.Source),
			Timestamp: r.CreatedAt.UTC(),
		})
	}
	return res, nil
}

func (repo *trackingRepository) QueryHeartbeats(ctx context.Context, filter tracking.QueryFilter) ([]tracking.Heartbeat, error) {
	var rows []heartbeatRow
	q := "SELECT id, user_id, created_at FROM tracking_heartbeat" + where("created_at") + " ORDER BY created_at DESC"
	if err := repo.db.SelectContext(ctx, &rows, q, filterArgs(filter)...); err != nil {
		return nil, errors.Wrap(err, "selecting tracking_heartbeat")
	}

	res := make([]tracking.Heartbeat, 0, len(rows))
	for _, r := range rows {
		res = append(res, tracking.Heartbeat{ID: r.ID, UserID: r.UserID, Timestamp: r.CreatedAt.UTC()})
	}
	return res, nil
}

func (repo *trackingRepository) QuerySessions(ctx context.Context, filter tracking.QueryFilter, orderings ...core.DBOrdering) ([]tracking.SessionSummary, error) {
	orderBy, err := orderByClause(orderings)
	if err != nil {
		return nil, err
	}

	var rows []sessionRow
	q := "SELECT id, user_id, duration, end_time FROM tracking_session" + where("end_time") + orderBy
	if err := repo.db.SelectContext(ctx, &rows, q, filterArgs(filter)...); err != nil {
		return nil, errors.Wrap(err, "selecting tracking_session")
	}

	res := make([]tracking.SessionSummary, 0, len(rows))
	for _, r := range rows {
		res = append(res, tracking.SessionSummary{ID: r.ID, UserID: r.UserID, Duration: r.Duration, EndTime: r.EndTime.UTC()})
	}
	return res, nil
}

// orderByClause only accepts tracking.SessionOrderingFields: they are interpolated in the query.
func orderByClause(orderings []core.DBOrdering) (string, error) {
	if len(orderings) == 0 {
		return " ORDER BY end_time DESC, id ASC", nil
	}
	parts := make([]string, 0, len(orderings)+1)
	for _, ord := range orderings {
		if !tracking.SessionOrderingFields[ord.Field] {
			return "", errors.Errorf("unknown ordering field %q", ord.Field)
		}
		parts = append(parts, ord.String())
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func (repo *trackingRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}

	queries := []string{
		"DELETE FROM tracking_page_view WHERE created_at < $1",
		"DELETE FROM tracking_heartbeat WHERE created_at < $1",
		"DELETE FROM tracking_session WHERE end_time < $1",
	}
	var total int64
	for _, q := range queries {
		res, err := tx.ExecContext(ctx, q, before.UTC())
		if err != nil {
			_ = tx.Rollback()
			return 0, errors.Wrap(err, "deleting events")
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, errors.Wrap(err, "counting deleted events")
		}
		total += n
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing transaction")
	}
	return total, nil
}
