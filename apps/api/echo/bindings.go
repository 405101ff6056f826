package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

var (
	orderingParam = "ordering"
	userIDParam   = "user_id"
	fromParam     = "from"
	toParam       = "to"
	beforeParam   = "before"

	invalidTimeText = "must be an RFC3339 date-time"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// parseTimeParams parses the RFC3339 query params `names`; missing ones are left zero.
func parseTimeParams(ctx echo.Context, names ...string) ([]time.Time, error) {
	var fldErrs []core.FieldError
	res := make([]time.Time, len(names))
	for i, name := range names {
		val := strings.TrimSpace(ctx.QueryParam(name))
		if val == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: name, Error: invalidTimeText})
			continue
		}
		res[i] = t.UTC()
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(nil, fldErrs...)
	}
	return res, nil
}

func bindQueryFilter(ctx echo.Context) (tracking.QueryFilter, error) {
	times, err := parseTimeParams(ctx, fromParam, toParam)
	if err != nil {
		return tracking.QueryFilter{}, err
	}
	filter := tracking.QueryFilter{
		UserID: ctx.QueryParam(userIDParam),
		From:   times[0],
		To:     times[1],
	}
	filter.Clean()
	return filter, nil
}
