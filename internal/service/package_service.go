package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"parcelbox/internal/events"
	"parcelbox/internal/media"
	"parcelbox/internal/models"
	"parcelbox/internal/storage"
	"parcelbox/internal/store"
)

const (
	packagesCollection = "packages"
	maxUploadSize      = 5 << 20 // 5 MB, matching the device firmware limit
)

var (
	ErrNotFound        = errors.New("not_found")
	ErrAlreadyPickedUp = errors.New("already_picked_up")
	ErrInvalidUpload   = errors.New("invalid_upload")
)

// packagesDoc is the whole packages collection: the id counter plus the
// records. lastId only ever grows, so ids stay unique and monotonic no
// matter how many uploads race — the counter is advanced inside the store's
// atomic Update.
type packagesDoc struct {
	LastID int              `json:"lastId"`
	Items  []models.Package `json:"items"`
}

type PackageService struct {
	db        store.Store
	artifacts storage.ArtifactStore
	bus       events.Bus
	log       zerolog.Logger
}

func NewPackageService(db store.Store, artifacts storage.ArtifactStore, bus events.Bus, log zerolog.Logger) *PackageService {
	return &PackageService{
		db:        db,
		artifacts: artifacts,
		bus:       bus,
		log:       log,
	}
}

func (s *PackageService) readDoc(ctx context.Context) (packagesDoc, error) {
	raw, err := s.db.Get(ctx, packagesCollection)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return packagesDoc{}, nil
		}
		return packagesDoc{}, err
	}
	return decodeDoc(raw)
}

func decodeDoc(raw []byte) (packagesDoc, error) {
	if len(raw) == 0 {
		return packagesDoc{}, nil
	}
	var doc packagesDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return packagesDoc{}, fmt.Errorf("decode packages: %w", err)
	}
	return doc, nil
}

type IngestInput struct {
	Photo      []byte
	DeviceID   string
	DistanceCm *float64
	Reason     string
	Firmware   string
}

// Ingest validates the upload, stores both image artifacts, and only then
// appends the record — so an aborted ingestion can leave at most orphaned
// files, never a record pointing at missing artifacts. The received event
// is published after the record is durable and is strictly best-effort.
func (s *PackageService) Ingest(ctx context.Context, input IngestInput) (models.Package, error) {
	if len(input.Photo) == 0 || len(input.Photo) > maxUploadSize {
		return models.Package{}, ErrInvalidUpload
	}

	artifacts, err := media.Process(input.Photo)
	if err != nil {
		if errors.Is(err, media.ErrNotAnImage) {
			return models.Package{}, ErrInvalidUpload
		}
		return models.Package{}, fmt.Errorf("process image: %w", err)
	}

	timestamp := time.Now()
	key := fmt.Sprintf("package_%d", timestamp.UnixMilli())

	photoURL, err := s.artifacts.Save(ctx, key+".jpg", artifacts.Photo, "image/jpeg")
	if err != nil {
		return models.Package{}, fmt.Errorf("store photo: %w", err)
	}
	thumbURL, err := s.artifacts.Save(ctx, key+"_thumb.jpg", artifacts.Thumb, "image/jpeg")
	if err != nil {
		_ = s.artifacts.Remove(ctx, key+".jpg")
		return models.Package{}, fmt.Errorf("store thumbnail: %w", err)
	}

	pkg := models.Package{
		DeviceID:   input.DeviceID,
		Timestamp:  timestamp,
		PhotoURL:   photoURL,
		ThumbURL:   thumbURL,
		DistanceCm: input.DistanceCm,
		Reason:     input.Reason,
		Firmware:   input.Firmware,
		Status:     models.PackageStatusReceived,
	}
	if pkg.DeviceID == "" {
		pkg.DeviceID = "box-01"
	}
	if pkg.Reason == "" {
		pkg.Reason = "detect"
	}
	if pkg.Firmware == "" {
		pkg.Firmware = "unknown"
	}

	err = s.db.Update(ctx, packagesCollection, func(current []byte) ([]byte, error) {
		doc, err := decodeDoc(current)
		if err != nil {
			return nil, err
		}
		doc.LastID++
		pkg.ID = doc.LastID
		doc.Items = append(doc.Items, pkg)
		return json.Marshal(doc)
	})
	if err != nil {
		return models.Package{}, fmt.Errorf("save package: %w", err)
	}

	if err := s.bus.Publish(ctx, events.NewPackageReceived(pkg)); err != nil {
		s.log.Warn().Err(err).Int("package_id", pkg.ID).Msg("publish received event failed")
	}

	return pkg, nil
}

// List returns one page sorted by timestamp descending plus the unpaginated
// total. limit <= 0 means no pagination.
func (s *PackageService) List(ctx context.Context, limit, offset int) ([]models.Package, int, error) {
	doc, err := s.readDoc(ctx)
	if err != nil {
		return nil, 0, err
	}

	items := make([]models.Package, len(doc.Items))
	copy(items, doc.Items)
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	total := len(items)
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		if offset >= total {
			return []models.Package{}, total, nil
		}
		end := offset + limit
		if end > total {
			end = total
		}
		items = items[offset:end]
	}
	return items, total, nil
}

func (s *PackageService) GetByID(ctx context.Context, id int) (models.Package, error) {
	doc, err := s.readDoc(ctx)
	if err != nil {
		return models.Package{}, err
	}
	for _, pkg := range doc.Items {
		if pkg.ID == id {
			return pkg, nil
		}
	}
	return models.Package{}, ErrNotFound
}

// Delete removes both artifacts, then the record. Artifact removal is
// idempotent; a record-removal failure after artifacts are gone is not
// rolled back.
func (s *PackageService) Delete(ctx context.Context, id int) error {
	pkg, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.artifacts.Remove(ctx, path.Base(pkg.PhotoURL)); err != nil {
		s.log.Warn().Err(err).Int("package_id", id).Msg("remove photo failed")
	}
	if err := s.artifacts.Remove(ctx, path.Base(pkg.ThumbURL)); err != nil {
		s.log.Warn().Err(err).Int("package_id", id).Msg("remove thumbnail failed")
	}

	found := false
	err = s.db.Update(ctx, packagesCollection, func(current []byte) ([]byte, error) {
		doc, err := decodeDoc(current)
		if err != nil {
			return nil, err
		}
		kept := doc.Items[:0]
		for _, item := range doc.Items {
			if item.ID == id {
				found = true
				continue
			}
			kept = append(kept, item)
		}
		doc.Items = kept
		return json.Marshal(doc)
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// MarkPickedUp is a one-way transition. A second call surfaces
// ErrAlreadyPickedUp instead of succeeding silently, so double pickups are
// visible to the operator.
func (s *PackageService) MarkPickedUp(ctx context.Context, id int) (models.Package, error) {
	var updated models.Package
	err := s.db.Update(ctx, packagesCollection, func(current []byte) ([]byte, error) {
		doc, err := decodeDoc(current)
		if err != nil {
			return nil, err
		}
		for i := range doc.Items {
			if doc.Items[i].ID != id {
				continue
			}
			if doc.Items[i].Status == models.PackageStatusPickedUp {
				return nil, ErrAlreadyPickedUp
			}
			now := time.Now()
			doc.Items[i].Status = models.PackageStatusPickedUp
			doc.Items[i].PickedUpAt = &now
			updated = doc.Items[i]
			return json.Marshal(doc)
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return models.Package{}, err
	}
	return updated, nil
}

// Stats are clock-relative (local midnight, rolling seven days) and are
// therefore computed per query, never cached.
func (s *PackageService) Stats(ctx context.Context) (models.PackageStats, error) {
	doc, err := s.readDoc(ctx)
	if err != nil {
		return models.PackageStats{}, err
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := midnight.AddDate(0, 0, -7)

	stats := models.PackageStats{Total: len(doc.Items)}
	for i := range doc.Items {
		pkg := doc.Items[i]
		if !pkg.Timestamp.Before(midnight) {
			stats.Today++
		}
		if !pkg.Timestamp.Before(weekStart) {
			stats.ThisWeek++
		}
		if stats.Latest == nil || pkg.Timestamp.After(stats.Latest.Timestamp) {
			latest := pkg
			stats.Latest = &latest
		}
	}
	return stats, nil
}
