package store

import (
	"context"
	"fmt"
	"time"
)

// Visit is one tracked page view. The client IP is only ever stored
// hashed.
type Visit struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type VisitorStats struct {
	TotalVisitors    int64   `json:"total_visitors"`
	UniqueVisitors   int64   `json:"unique_visitors"`
	VisitorsToday    int64   `json:"visitors_today"`
	VisitorsThisWeek int64   `json:"visitors_this_week"`
	RecentVisitors   []Visit `json:"recent_visitors"`
}

func (d *DB) RecordVisit(ctx context.Context, hashedIP, userAgent, path string) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, hashedIP, userAgent, path, d.stamp())
	if err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	return nil
}

// RecentVisits returns up to limit visits, newest first.
func (d *DB) RecentVisits(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("listing visits: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Stats summarizes the visitor log.
func (d *DB) Stats(ctx context.Context) (*VisitorStats, error) {
	stats := &VisitorStats{}
	now := d.stamp()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	err := d.QueryRowContext(ctx, "SELECT COUNT(*) FROM visitors").Scan(&stats.TotalVisitors)
	if err != nil {
		return nil, fmt.Errorf("counting visitors: %w", err)
	}

	err = d.QueryRowContext(ctx, "SELECT COUNT(DISTINCT hashed_ip) FROM visitors").Scan(&stats.UniqueVisitors)
	if err != nil {
		return nil, fmt.Errorf("counting unique visitors: %w", err)
	}

	err = d.QueryRowContext(ctx, "SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", startOfDay).Scan(&stats.VisitorsToday)
	if err != nil {
		return nil, fmt.Errorf("counting today's visitors: %w", err)
	}

	err = d.QueryRowContext(ctx, "SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", now.AddDate(0, 0, -7)).Scan(&stats.VisitorsThisWeek)
	if err != nil {
		return nil, fmt.Errorf("counting this week's visitors: %w", err)
	}

	stats.RecentVisitors, err = d.RecentVisits(ctx, 50)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// CleanupVisits deletes visits older than maxAge and returns how many
// were removed.
func (d *DB) CleanupVisits(ctx context.Context, maxAge time.Duration) (int64, error) {
	result, err := d.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, d.stamp().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("cleaning up visits: %w", err)
	}
	return result.RowsAffected()
}
