package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rpad300/shortlistAI-sub000/internal/ai"
)

// ListModelPricing returns the active price overrides, ordered by
// provider and model.
func (s *Store) ListModelPricing(ctx context.Context) ([]ai.ModelPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, model, input_per_million, output_per_million
		FROM ai_model_pricing
		WHERE is_active = 1
		ORDER BY provider, model`)
	if err != nil {
		return nil, fmt.Errorf("failed to query model pricing: %w", err)
	}
	defer rows.Close()

	var out []ai.ModelPrice
	for rows.Next() {
		var (
			provider string
			mp       ai.ModelPrice
		)
		if err := rows.Scan(&provider, &mp.Model, &mp.Price.InputPerMillion, &mp.Price.OutputPerMillion); err != nil {
			return nil, fmt.Errorf("failed to scan model pricing: %w", err)
		}
		mp.Provider = ai.ProviderName(provider)
		out = append(out, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read model pricing: %w", err)
	}
	return out, nil
}

// UpsertModelPricing stores an active override for provider/model.
func (s *Store) UpsertModelPricing(ctx context.Context, mp ai.ModelPrice) error {
	if mp.Provider == "" || strings.TrimSpace(mp.Model) == "" {
		return fmt.Errorf("provider and model are required")
	}
	if mp.Price.InputPerMillion < 0 || mp.Price.OutputPerMillion < 0 {
		return fmt.Errorf("prices must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_model_pricing (provider, model, input_per_million, output_per_million, is_active, updated_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(provider, model) DO UPDATE SET
			input_per_million = excluded.input_per_million,
			output_per_million = excluded.output_per_million,
			is_active = 1,
			updated_at = excluded.updated_at`,
		string(mp.Provider), strings.TrimSpace(mp.Model), mp.Price.InputPerMillion, mp.Price.OutputPerMillion, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert model pricing: %w", err)
	}
	s.logger.Info("model pricing updated",
		zap.String("provider", string(mp.Provider)),
		zap.String("model", mp.Model))
	return nil
}

// DeactivateModelPricing turns off an override so compiled-in prices apply
// again. Reports whether a row was changed.
func (s *Store) DeactivateModelPricing(ctx context.Context, provider ai.ProviderName, model string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_model_pricing SET is_active = 0, updated_at = ?
		WHERE provider = ? AND model = ? AND is_active = 1`,
		time.Now().UTC(), string(provider), model)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate model pricing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
