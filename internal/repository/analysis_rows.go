package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ImpulseSaver/internal/domain/models"
)

// analysisRow is the flattened form shared by the SQL analysis stores.
type analysisRow struct {
	ID           string
	ASIN         string
	Marketplace  string
	Title        string
	Category     string
	CurrentPrice float64
	Quality      string
	ImpulseScore int
	Verdict      string
	CreatedAt    time.Time
	Payload      []byte
}

func toAnalysisRow(a *models.ProductAnalysis) (analysisRow, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return analysisRow{}, fmt.Errorf("marshal analysis: %w", err)
	}
	s := a.Summary()
	return analysisRow{
		ID:           s.ID,
		ASIN:         s.ASIN,
		Marketplace:  s.Marketplace,
		Title:        s.Title,
		Category:     s.Category,
		CurrentPrice: s.CurrentPrice,
		Quality:      string(s.Quality),
		ImpulseScore: s.ImpulseScore,
		Verdict:      string(s.Verdict),
		CreatedAt:    s.Timestamp.UTC(),
		Payload:      payload,
	}, nil
}

// scanSummaries reads rows selected as id, asin, marketplace, title,
// category, current_price, quality, impulse_score, verdict, created_at and
// the product_data object of the payload.
// scanTime converts the driver's created_at column.
func scanSummaries(rows *sql.Rows, scanTime func(src any) (time.Time, error)) ([]models.AnalysisSummary, error) {
	out := make([]models.AnalysisSummary, 0, 16)
	for rows.Next() {
		var (
			s       models.AnalysisSummary
			quality string
			verdict string
			created any
			listing sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.ASIN, &s.Marketplace, &s.Title, &s.Category, &s.CurrentPrice, &quality, &s.ImpulseScore, &verdict, &created, &listing); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		if listing.Valid && listing.String != "" {
			if err := json.Unmarshal([]byte(listing.String), &s.Listing); err != nil {
				return nil, fmt.Errorf("decode listing of %s: %w", s.ID, err)
			}
		}
		ts, err := scanTime(created)
		if err != nil {
			return nil, fmt.Errorf("scan analysis time: %w", err)
		}
		s.Quality = models.Quality(quality)
		s.Verdict = models.Verdict(verdict)
		s.Timestamp = ts.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
