// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the idempotency
// records that make newsletter publishing safe to retry.
//
// Protocol (shared with services.PublishService):
//
//  1. BeginClaim inserts (user_id, idempotency_key) with ON CONFLICT DO
//     NOTHING inside the caller's transaction. One caller wins; everyone
//     else sees zero rows affected.
//  2. The winner performs the guarded side effects in the same transaction
//     and finishes with SaveResponse, a single UPDATE that fills in all
//     response columns atomically, committed together with the side effects.
//  3. Losers call GetSavedResponse on the pool and replay the stored bytes.
//     A row without a saved response means an earlier claim never finished;
//     that is surfaced as ErrMissingSavedResponse, never retried silently.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
)

// BeginClaim attempts to insert a fresh idempotency row for (userID, key)
// within tx. It returns true when this caller won the claim and now owns the
// guarded operation, false when a prior claim exists.
func BeginClaim(tx *gorm.DB, userID, key string, now time.Time) (bool, error) {
	rec := &domain.IdempotencyRecord{
		UserID:         userID,
		IdempotencyKey: key,
		CreatedAt:      now,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetSavedResponse fetches the response recorded for (userID, key).
// It returns ErrNotFound when no row exists and ErrMissingSavedResponse when
// the row exists but the guarded operation never completed.
func GetSavedResponse(ctx context.Context, db *gorm.DB, userID, key string) (*domain.SavedResponse, error) {
	var rec domain.IdempotencyRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.ResponseStatusCode == nil {
		return nil, ErrMissingSavedResponse
	}

	var headers []domain.HeaderPair
	if len(rec.ResponseHeaders) > 0 {
		if err := json.Unmarshal(rec.ResponseHeaders, &headers); err != nil {
			return nil, err
		}
	}
	return &domain.SavedResponse{
		StatusCode: int(*rec.ResponseStatusCode),
		Headers:    headers,
		Body:       rec.ResponseBody,
	}, nil
}

// SaveResponse records resp for the already-claimed (userID, key) row within
// tx. Status, headers, and body are written by one UPDATE so they become
// non-NULL atomically when the transaction commits.
func SaveResponse(tx *gorm.DB, userID, key string, resp *domain.SavedResponse) error {
	headers, err := json.Marshal(resp.Headers)
	if err != nil {
		return err
	}
	status := int16(resp.StatusCode)

	res := tx.Model(&domain.IdempotencyRecord{}).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		Updates(map[string]any{
			"response_status_code": status,
			"response_headers":     headers,
			"response_body":        resp.Body,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
