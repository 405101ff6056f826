package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

var errDuplicateID = errors.New("duplicate event ID")

type trackingRepository struct {
	db *trackingTables
}

func NewTrackingRepository(db *DB) tracking.Repository {
	return &trackingRepository{db: db.tracking}
}

func (repo *trackingRepository) CreatePageView(_ context.Context, pv tracking.PageView) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.pageViews[pv.ID]; ok {
		return errors.Wrap(errDuplicateID, pv.ID)
	}
	repo.db.pageViews[pv.ID] = pv
	return nil
}

func (repo *trackingRepository) CreateHeartbeat(_ context.Context, hb tracking.Heartbeat) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.heartbeats[hb.ID]; ok {
		return errors.Wrap(errDuplicateID, hb.ID)
	}
	repo.db.heartbeats[hb.ID] = hb
	return nil
}

func (repo *trackingRepository) CreateSession(_ context.Context, ss tracking.SessionSummary) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sessions[ss.ID]; ok {
		return errors.Wrap(errDuplicateID, ss.ID)
	}
	repo.db.sessions[ss.ID] = ss
	return nil
}

func matches(filter tracking.QueryFilter, userID string, t time.Time) bool {
	return (filter.UserID == "" || filter.UserID == userID) && filter.Contains(t)
}

func (repo *trackingRepository) QueryPageViews(_ context.Context, filter tracking.QueryFilter) ([]tracking.PageView, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]tracking.PageView, 0)
	for _, pv := range repo.db.pageViews {
		if matches(filter, pv.UserID, pv.Timestamp) {
			res = append(res, pv)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.After(res[j].Timestamp) })
	return res, nil
}

func (repo *trackingRepository) QueryHeartbeats(_ context.Context, filter tracking.QueryFilter) ([]tracking.Heartbeat, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]tracking.Heartbeat, 0)
	for _, hb := range repo.db.heartbeats {
		if matches(filter, hb.UserID, hb.Timestamp) {
			res = append(res, hb)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.After(res[j].Timestamp) })
	return res, nil
}

func (repo *trackingRepository) QuerySessions(_ context.Context, filter tracking.QueryFilter, orderings ...core.DBOrdering) ([]tracking.SessionSummary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]tracking.SessionSummary, 0)
	for _, ss := range repo.db.sessions {
		if matches(filter, ss.UserID, ss.EndTime) {
			res = append(res, ss)
		}
	}

	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "end_time"}}
	}
	sort.SliceStable(res, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareSessions(res[i], res[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func compareSessions(a, b tracking.SessionSummary, field string) int {
	switch field {
	case "user_id":
		return strings.Compare(a.UserID, b.UserID)
	case "duration":
		switch {
		case a.Duration < b.Duration:
			return -1
		case a.Duration > b.Duration:
			return 1
		}
	case "end_time":
		switch {
		case a.EndTime.Before(b.EndTime):
			return -1
		case a.EndTime.After(b.EndTime):
			return 1
		}
	}
	return 0
}

func (repo *trackingRepository) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	for id, pv := range repo.db.pageViews {
		if pv.Timestamp.Before(before) {
			delete(repo.db.pageViews, id)
			n++
		}
	}
	for id, hb := range repo.db.heartbeats {
		if hb.Timestamp.Before(before) {
			delete(repo.db.heartbeats, id)
			n++
		}
	}
	for id, ss := range repo.db.sessions {
		if ss.EndTime.Before(before) {
			delete(repo.db.sessions, id)
			n++
		}
	}
	return n, nil
}
