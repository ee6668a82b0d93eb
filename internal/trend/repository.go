package trend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type RiskyPoint struct {
	Date              string  `json:"date"`
	Year              int     `json:"-"`
	Month             int     `json:"-"`
	RiskyPlaysPercent float64 `json:"riskyPlaysPercent"`
}

type PredictionPoint struct {
	Year               int     `json:"year"`
	SampleOverExpected float64 `json:"sampleOverExpected"`
}

// Source answers the case-study queries the back end implements.
type Source interface {
	RiskyOpenings(ctx context.Context, p RiskyParams) ([]RiskyPoint, error)
	ResultPredictions(ctx context.Context, p PredictionParams) ([]PredictionPoint, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) RiskyOpenings(ctx context.Context, p RiskyParams) ([]RiskyPoint, error) {
	q, args := RiskyOpeningsSQL(p)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("risky openings query: %w", err)
	}
	defer rows.Close()

	var out []RiskyPoint
	for rows.Next() {
		var pt RiskyPoint
		if err := rows.Scan(&pt.RiskyPlaysPercent, &pt.Month, &pt.Year); err != nil {
			return nil, fmt.Errorf("risky openings scan: %w", err)
		}
		pt.Date = fmt.Sprintf("%04d-%02d", pt.Year, pt.Month)
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (r *Repository) ResultPredictions(ctx context.Context, p PredictionParams) ([]PredictionPoint, error) {
	q, args := ResultPredictionsSQL(p)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("result predictions query: %w", err)
	}
	defer rows.Close()

	var out []PredictionPoint
	for rows.Next() {
		var pt PredictionPoint
		if err := rows.Scan(&pt.Year, &pt.SampleOverExpected); err != nil {
			return nil, fmt.Errorf("result predictions scan: %w", err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}
