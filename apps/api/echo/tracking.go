package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

type trackingApi struct {
	svc tracking.ServiceInterface
}

func registerTrackingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc tracking.ServiceInterface) {
	api := trackingApi{svc: svc}

	tg := g.Group("/tracking", jwt)

	// reported by trackers
	tg.POST("/page-views", api.recordPageView)
	tg.POST("/heartbeats", api.recordHeartbeat)
	tg.POST("/sessions", api.recordSession)

	// dashboards
	tg.GET("/sessions", api.querySessions, rolesMiddleware(RoleTeacher))
	tg.GET("/usage", api.usage)
	tg.DELETE("/events", api.purge, rolesMiddleware())
}

// checkOwner denies reporting events on behalf of another user, unless admin.
func checkOwner(ctx echo.Context, userID string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	userID = core.CleanString(userID)
	if userID == "" || claims.IsAdmin || userID == claims.Subject {
		return nil // blank IDs fail validation
	}
	return errHttpForbidden
}

// Handlers

func (api *trackingApi) recordPageView(ctx echo.Context) error {
	var data tracking.PageView
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PageView")
	}
	if err := checkOwner(ctx, data.UserID); err != nil {
		return err
	}
	if _, err := api.svc.RecordPageView(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "recording page view")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *trackingApi) recordHeartbeat(ctx echo.Context) error {
	var data tracking.Heartbeat
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Heartbeat")
	}
	if err := checkOwner(ctx, data.UserID); err != nil {
		return err
	}
	if _, err := api.svc.RecordHeartbeat(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "recording heartbeat")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *trackingApi) recordSession(ctx echo.Context) error {
	var data tracking.SessionSummary
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionSummary")
	}
	if err := checkOwner(ctx, data.UserID); err != nil {
		return err
	}
	if _, err := api.svc.RecordSession(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "recording session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *trackingApi) querySessions(ctx echo.Context) error {
	filter, err := bindQueryFilter(ctx)
	if err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx)

	sessions, err := api.svc.QuerySessions(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *trackingApi) usage(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	filter, err := bindQueryFilter(ctx)
	if err != nil {
		return err
	}
	if !claims.IsStaff() {
		filter.UserID = claims.Subject
	}

	usages, err := api.svc.Usage(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing usage")
	}
	return ctx.JSON(http.StatusOK, usages)
}

func (api *trackingApi) purge(ctx echo.Context) error {
	times, err := parseTimeParams(ctx, beforeParam)
	if err != nil {
		return err
	}

	deleted, err := api.svc.Purge(ctx.Request().Context(), times[0])
	if err != nil {
		return errors.Wrap(err, "purging events")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": deleted, "before": times[0].Format(time.RFC3339)})
}
