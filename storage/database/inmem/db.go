package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-tracking/core/tracking"
)

type (
	DB struct {
		tracking *trackingTables
	}

	trackingTables struct {
		pageViews  map[string]tracking.PageView
		heartbeats map[string]tracking.Heartbeat
		sessions   map[string]tracking.SessionSummary
		mutex      sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		tracking: &trackingTables{
			pageViews:  make(map[string]tracking.PageView),
			heartbeats: make(map[string]tracking.Heartbeat),
			sessions:   make(map[string]tracking.SessionSummary),
		},
	}
}
