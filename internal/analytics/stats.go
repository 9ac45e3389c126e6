package analytics

import (
	"context"
	"database/sql"
	"fmt"
)

// UserCount pairs a user with a tally, for top-N listings.
type UserCount struct {
	UserID int64 `json:"user_id"`
	Count  int64 `json:"count"`
}

// CodeCount pairs a classification code with a tally.
type CodeCount struct {
	Code  string `json:"code"`
	Count int64  `json:"count"`
}

// Stats is the headline summary shown by the /stats command.
type Stats struct {
	TotalUsers       int64       `json:"total_users"`
	TotalConversions int64       `json:"total_conversions"`
	TopUsers         []UserCount `json:"top_users"`
}

// DetailedStats adds error, timing and media-kind breakdowns.
type DetailedStats struct {
	TotalErrors     int64       `json:"total_errors"`
	TopErrors       []CodeCount `json:"top_errors"`
	AvgProcessingMS float64     `json:"avg_processing_ms"`
	SumOutputBytes  float64     `json:"sum_output_bytes"`
	AvgOutputBytes  float64     `json:"avg_output_bytes"`
	Kinds           []CodeCount `json:"kinds"`
}

// Stats aggregates the headline numbers.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT user_id) FROM events").Scan(&out.TotalUsers); err != nil {
		return out, fmt.Errorf("analytics: stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(processed_count), 0) FROM counters").Scan(&out.TotalConversions); err != nil {
		return out, fmt.Errorf("analytics: stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, processed_count FROM counters
		 ORDER BY processed_count DESC, user_id ASC LIMIT 5`)
	if err != nil {
		return out, fmt.Errorf("analytics: stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var uc UserCount
		if err := rows.Scan(&uc.UserID, &uc.Count); err != nil {
			return out, fmt.Errorf("analytics: stats: %w", err)
		}
		out.TopUsers = append(out.TopUsers, uc)
	}
	return out, rows.Err()
}

// DetailedStats aggregates the extended breakdowns.
func (s *Store) DetailedStats(ctx context.Context) (DetailedStats, error) {
	var out DetailedStats
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM errors").Scan(&out.TotalErrors); err != nil {
		return out, fmt.Errorf("analytics: detailed stats: %w", err)
	}

	topErrors, err := s.codeCounts(ctx,
		"SELECT code, COUNT(*) AS c FROM errors GROUP BY code ORDER BY c DESC LIMIT 5")
	if err != nil {
		return out, err
	}
	out.TopErrors = topErrors

	var avgMS, avgBytes sql.NullFloat64
	var sumBytes sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		"SELECT AVG(value) FROM metrics WHERE metric='processing_ms'").Scan(&avgMS); err != nil {
		return out, fmt.Errorf("analytics: detailed stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT SUM(value), AVG(value) FROM metrics WHERE metric='output_size_bytes'").
		Scan(&sumBytes, &avgBytes); err != nil {
		return out, fmt.Errorf("analytics: detailed stats: %w", err)
	}
	out.AvgProcessingMS = avgMS.Float64
	out.SumOutputBytes = sumBytes.Float64
	out.AvgOutputBytes = avgBytes.Float64

	kinds, err := s.codeCounts(ctx,
		`SELECT substr(event, 6) AS kind, COUNT(*) FROM events
		 WHERE event LIKE 'kind:%' GROUP BY kind ORDER BY COUNT(*) DESC`)
	if err != nil {
		return out, err
	}
	out.Kinds = kinds
	return out, nil
}

func (s *Store) codeCounts(ctx context.Context, query string) ([]CodeCount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	defer rows.Close()
	var out []CodeCount
	for rows.Next() {
		var cc CodeCount
		if err := rows.Scan(&cc.Code, &cc.Count); err != nil {
			return nil, fmt.Errorf("analytics: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}
