package server

import (
	"context"
	"os"
	"time"
)

// scheduleMaintenance registers the stale-location recheck and
// stale-session reaping jobs on the server's cron scheduler. Neither
// job is part of the core request/reply contract; both are background
// upkeep that keeps the persisted state honest between client
// interactions.
func (s *Server) scheduleMaintenance() {
	interval := s.Config.MaintenanceInterval
	spec := "@every " + interval.String()

	s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		s.recheckStaleLocations(ctx)
	})

	s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		s.reapStaleSessions(ctx)
	})
}

// recheckStaleLocations re-verifies storage-backed location rows whose
// exists_cache hasn't been refreshed in over a maintenance interval, so
// a layer or media reference that went missing on disk is eventually
// reflected back to clients instead of staying stale forever.
func (s *Server) recheckStaleLocations(ctx context.Context) {
	cutoff := time.Now().Add(-s.Config.MaintenanceInterval).Unix()
	rows, err := s.Store.Locations.StaleSince(ctx, s.Store.DB, cutoff, 500)
	if err != nil {
		s.Log.Warn(ctx, "stale location scan failed", map[string]interface{}{"error": err.Error()})
		return
	}

	for _, row := range rows {
		if row.StorageType != "local" {
			continue
		}
		exists := pathExists(row.Path)
		if exists == row.ExistsCache {
			continue
		}
		if err := s.Store.Locations.UpdateExistence(ctx, s.Store.DB, row.ID, exists); err != nil {
			s.Log.Warn(ctx, "failed to update location existence", map[string]interface{}{
				"location_id": row.ID.String(), "error": err.Error(),
			})
		}
	}
}

// reapStaleSessions closes session rows whose client went away without
// a clean bye (network drop, crash) and never reconnected, so ListActive
// doesn't accumulate sessions for sockets nobody holds anymore.
func (s *Server) reapStaleSessions(ctx context.Context) {
	cutoff := time.Now().Add(-s.Config.SessionStaleAfter)
	n, err := s.Store.Sessions.ReapStale(ctx, s.Store.DB, cutoff)
	if err != nil {
		s.Log.Warn(ctx, "stale session reap failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if n > 0 {
		s.Log.Info(ctx, "reaped stale sessions", map[string]interface{}{"count": n})
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
