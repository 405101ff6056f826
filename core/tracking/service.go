package tracking

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
)

// SessionOrderingFields lists the fields sessions can be ordered by.
var SessionOrderingFields = map[string]bool{
	"user_id":  true,
	"duration": true,
	"end_time": true,
}

type (
	Repository interface {
		CreatePageView(ctx context.Context, pv PageView) error
		CreateHeartbeat(ctx context.Context, hb Heartbeat) error
		CreateSession(ctx context.Context, ss SessionSummary) error
		QueryPageViews(ctx context.Context, filter QueryFilter) ([]PageView, error)
		QueryHeartbeats(ctx context.Context, filter QueryFilter) ([]Heartbeat, error)
		// QuerySessions filters on SessionSummary.EndTime; default ordering is `-end_time`.
		QuerySessions(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]SessionSummary, error)
		// DeleteBefore deletes all events that happened before `before` and returns how many were deleted.
		DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	}

	ServiceInterface interface {
		RecordPageView(ctx context.Context, pv PageView) (PageView, error)
		RecordHeartbeat(ctx context.Context, hb Heartbeat) (Heartbeat, error)
		RecordSession(ctx context.Context, ss SessionSummary) (SessionSummary, error)
		QuerySessions(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]SessionSummary, error)
		Usage(ctx context.Context, filter QueryFilter) ([]Usage, error)
		Purge(ctx context.Context, before time.Time) (int64, error)
	}

	// Service is the collector side: it stores the events reported by Trackers.
	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) RecordPageView(ctx context.Context, pv PageView) (PageView, error) {
	if err := pv.Validate(svc.validate); err != nil {
		return PageView{}, err
	}
	pv.ID = uuid.New().String()
	if err := svc.repo.CreatePageView(ctx, pv); err != nil {
		return PageView{}, errors.Wrap(err, "creating page view")
	}
	return pv, nil
}

func (svc *Service) RecordHeartbeat(ctx context.Context, hb Heartbeat) (Heartbeat, error) {
	if err := hb.Validate(svc.validate); err != nil {
		return Heartbeat{}, err
	}
	hb.ID = uuid.New().String()
	if err := svc.repo.CreateHeartbeat(ctx, hb); err != nil {
		return Heartbeat{}, errors.Wrap(err, "creating heartbeat")
	}
	return hb, nil
}

func (svc *Service) RecordSession(ctx context.Context, ss SessionSummary) (SessionSummary, error) {
	if err := ss.Validate(svc.validate); err != nil {
		return SessionSummary{}, err
	}
	ss.ID = uuid.New().String()
	if err := svc.repo.CreateSession(ctx, ss); err != nil {
		return SessionSummary{}, errors.Wrap(err, "creating session")
	}
	return ss, nil
}

func (svc *Service) QuerySessions(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]SessionSummary, error) {
	filter.Clean()
	for _, ord := range orderings {
		if !SessionOrderingFields[ord.Field] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: "unknown field: " + ord.Field})
		}
	}
	return svc.repo.QuerySessions(ctx, filter, orderings...)
}

// Usage aggregates sessions, page views & heartbeats per user, sorted by user ID.
func (svc *Service) Usage(ctx context.Context, filter QueryFilter) ([]Usage, error) {
	filter.Clean()

	sessions, err := svc.repo.QuerySessions(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	pageViews, err := svc.repo.QueryPageViews(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying page views")
	}
	heartbeats, err := svc.repo.QueryHeartbeats(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying heartbeats")
	}

	byUser := make(map[string]*Usage)
	get := func(userID string) *Usage {
		u, ok := byUser[userID]
		if !ok {
			u = &Usage{UserID: userID}
			byUser[userID] = u
		}
		return u
	}
	seen := func(u *Usage, t time.Time) {
		if t.After(u.LastSeen) {
			u.LastSeen = t
		}
	}

	for _, ss := range sessions {
		u := get(ss.UserID)
		u.Sessions++
		u.TotalSeconds += ss.Duration
		seen(u, ss.EndTime)
	}
	for _, pv := range pageViews {
		u := get(pv.UserID)
		u.PageViews++
		seen(u, pv.Timestamp)
	}
	for _, hb := range heartbeats {
		u := get(hb.UserID)
		u.Heartbeats++
		seen(u, hb.Timestamp)
	}

	usages := make([]Usage, 0, len(byUser))
	for _, u := range byUser {
		usages = append(usages, *u)
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i].UserID < usages[j].UserID })
	return usages, nil
}

func (svc *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	if before.IsZero() {
		return 0, core.NewValidationError(nil, core.FieldError{Field: "before", Error: "this field is required"})
	}
	n, err := svc.repo.DeleteBefore(ctx, before.UTC())
	return n, errors.Wrap(err, "deleting events")
}
