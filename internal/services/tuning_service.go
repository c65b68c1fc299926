// Package services holds application services that sit between the HTTP
// handlers and the engine/storage layers.
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tabletoplab/gamescout/internal/storage"
)

// WeightUpdater is the part of the recommender the tuning service drives.
type WeightUpdater interface {
	UpdateWeights(embeddingWeight, facetWeight float64) error
}

// Tuning is the runtime-adjustable scorer configuration.
type Tuning struct {
	EmbeddingWeight float64   `json:"embedding_weight"`
	FacetWeight     float64   `json:"facet_weight"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// TuningService persists scorer blend weights in the settings table and
// pushes changes into the live recommender so they take effect without a
// restart.
type TuningService struct {
	db          *sql.DB
	recommender WeightUpdater
}

// NewTuningService creates a tuning service over the given database and
// recommender.
func NewTuningService(db *sql.DB, recommender WeightUpdater) *TuningService {
	return &TuningService{db: db, recommender: recommender}
}

// Get returns the persisted tuning, or the given defaults when nothing
// has been saved yet.
func (s *TuningService) Get(defaults Tuning) (Tuning, error) {
	tuning := defaults

	embedding, embeddingAt, err := s.getWeight("embedding_weight")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Tuning{}, fmt.Errorf("tuning: load embedding weight: %w", err)
	}
	facet, facetAt, ferr := s.getWeight("facet_weight")
	if ferr != nil && !errors.Is(ferr, sql.ErrNoRows) {
		return Tuning{}, fmt.Errorf("tuning: load facet weight: %w", ferr)
	}

	// Both keys are written together; use them only as a pair.
	if err == nil && ferr == nil {
		tuning.EmbeddingWeight = embedding
		tuning.FacetWeight = facet
		tuning.UpdatedAt = embeddingAt
		if facetAt.After(embeddingAt) {
			tuning.UpdatedAt = facetAt
		}
	}
	return tuning, nil
}

// Apply validates the weights against the live recommender, persists
// them, and reports the stored tuning.
func (s *TuningService) Apply(tuning Tuning) (Tuning, error) {
	if s.recommender == nil {
		return Tuning{}, errors.New("tuning: recommender is not configured")
	}
	if err := s.recommender.UpdateWeights(tuning.EmbeddingWeight, tuning.FacetWeight); err != nil {
		return Tuning{}, err
	}

	now := time.Now().UTC()
	for key, value := range map[string]float64{
		"embedding_weight": tuning.EmbeddingWeight,
		"facet_weight":     tuning.FacetWeight,
	} {
		if err := s.setWeight(key, value, now); err != nil {
			return Tuning{}, fmt.Errorf("tuning: persist %s: %w", key, err)
		}
	}

	tuning.UpdatedAt = now
	return tuning, nil
}

// Restore pushes the persisted tuning (if any) into the recommender.
// Called once at startup, after the recommender is constructed with
// config defaults.
func (s *TuningService) Restore(defaults Tuning) error {
	tuning, err := s.Get(defaults)
	if err != nil {
		return err
	}
	if tuning.UpdatedAt.IsZero() {
		return nil // nothing persisted
	}
	if s.recommender == nil {
		return errors.New("tuning: recommender is not configured")
	}
	return s.recommender.UpdateWeights(tuning.EmbeddingWeight, tuning.FacetWeight)
}

func (s *TuningService) getWeight(key string) (float64, time.Time, error) {
	var raw string
	var updatedAt time.Time
	query := storage.Rebind(s.db, "SELECT value, updated_at FROM settings WHERE key = ?")
	err := s.db.QueryRow(query, key).Scan(&raw, &updatedAt)
	if err != nil {
		return 0, time.Time{}, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid stored value %q: %w", raw, err)
	}
	return value, updatedAt, nil
}

func (s *TuningService) setWeight(key string, value float64, at time.Time) error {
	query := storage.Rebind(s.db, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`)
	_, err := s.db.Exec(query, key, strconv.FormatFloat(value, 'f', -1, 64), at)
	return err
}
