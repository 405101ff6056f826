package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

// NewValidator returns a validator with all the app validators registered.
func NewValidator() *validator.Validate {
	validate, _ := NewValidatorAndTranslator()
	return validate
}

// NewValidatorAndTranslator also returns the translator the validation texts were registered on.
func NewValidatorAndTranslator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	tracking.InitValidators(validate, translator)
	return validate, translator
}

func CreatePageView(t *testing.T, repo tracking.Repository, id, userID, path string, source tracking.Source, tstamp time.Time) tracking.PageView {
	pv := tracking.PageView{ID: id, UserID: userID, Path: path, Source: source, Timestamp: tstamp.UTC()}
	if err := repo.CreatePageView(context.Background(), pv); err != nil {
		t.Fatalf("CreatePageView() failed: %v", err)
	}
	return pv
}

func CreateHeartbeat(t *testing.T, repo tracking.Repository, id, userID string, tstamp time.Time) tracking.Heartbeat {
	hb := tracking.Heartbeat{ID: id, UserID: userID, Timestamp: tstamp.UTC()}
	if err := repo.CreateHeartbeat(context.Background(), hb); err != nil {
		t.Fatalf("CreateHeartbeat() failed: %v", err)
	}
	return hb
}

func CreateSession(t *testing.T, repo tracking.Repository, id, userID string, duration int64, endTime time.Time) tracking.SessionSummary {
	ss := tracking.SessionSummary{ID: id, UserID: userID, Duration: duration, EndTime: endTime.UTC()}
	if err := repo.CreateSession(context.Background(), ss); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return ss
}
