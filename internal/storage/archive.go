package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// CycleArchive writes each published cycle's full JSON to object storage for
// audit. Archiving is best effort: a failed upload is logged and never blocks
// publication.
type CycleArchive struct {
	store ObjectStorage
}

// NewCycleArchive creates an archive over any ObjectStorage backend. A nil
// backend disables archiving.
func NewCycleArchive(store ObjectStorage) *CycleArchive {
	return &CycleArchive{store: store}
}

func archiveKey(businessID, cycleKey string) string {
	return fmt.Sprintf("cycles/%s/%s.json", businessID, cycleKey)
}

// Archive uploads one published cycle result.
func (a *CycleArchive) Archive(ctx context.Context, result *domain.CycleResult) {
	if a == nil || a.store == nil || result == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Str("cycle_key", result.CycleKey).Msg("archive: encode failed")
		return
	}

	key := archiveKey(result.BusinessID, result.CycleKey)
	if err := a.store.UploadObject(ctx, key, payload); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("archive: upload failed")
		return
	}

	log.Debug().Str("key", key).Msg("cycle archived")
}

// List returns the archived cycle objects of a business.
func (a *CycleArchive) List(ctx context.Context, businessID string) ([]ObjectInfo, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	return a.store.ListObjects(ctx, fmt.Sprintf("cycles/%s/", businessID))
}

// Pull downloads one archived cycle's JSON to a local file.
func (a *CycleArchive) Pull(ctx context.Context, businessID, cycleKey, destPath string) error {
	if a == nil || a.store == nil {
		return fmt.Errorf("cycle archive is not configured")
	}
	return a.store.DownloadObject(ctx, archiveKey(businessID, cycleKey), destPath)
}
