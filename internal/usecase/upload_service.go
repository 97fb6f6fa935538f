package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bkharvest/harvester/internal/domain"
)

// DefaultUploadBatchSize is the number of rows sent to the database per insert.
const DefaultUploadBatchSize = 100_000

// RowSource reads typed rows back from persisted CSV files.
type RowSource interface {
	ReadRestaurants(ctx context.Context, path string, fn func(domain.RestaurantRow) error) error
	ReadMenuItems(ctx context.Context, path string, fn func(domain.MenuItemRow) error) error
	ReadItems(ctx context.Context, path string, fn func(domain.ItemRow) error) error
}

// UploadService copies harvested CSV files into the relational sink.
type UploadService struct {
	source    RowSource
	rows      domain.RowStore
	batchSize int
	now       func() time.Time
}

// NewUploadService creates a new upload service
func NewUploadService(source RowSource, rows domain.RowStore, batchSize int) *UploadService {
	if batchSize < 1 {
		batchSize = DefaultUploadBatchSize
	}
	return &UploadService{source: source, rows: rows, batchSize: batchSize, now: time.Now}
}

// Upload inserts every named file inside one transaction; any failure rolls
// the whole upload back.
func (s *UploadService) Upload(ctx context.Context, files domain.HarvestFiles) error {
	return s.rows.InTx(ctx, func(w domain.RowWriter) error {
		if files.Restaurants != "" {
			if err := s.uploadRestaurants(ctx, w, files.Restaurants); err != nil {
				return err
			}
		}
		if files.MenuItems != "" {
			if err := s.uploadMenuItems(ctx, w, files.MenuItems); err != nil {
				return err
			}
		}
		if files.Items != "" {
			if err := s.uploadItems(ctx, w, files.Items); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *UploadService) uploadRestaurants(ctx context.Context, w domain.RowWriter, path string) error {
	createdDate, ok := FileDate(path)
	if !ok {
		createdDate = DateOf(s.now())
	}

	batch := make([]domain.RestaurantRow, 0, min(s.batchSize, 4096))
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.InsertRestaurants(ctx, batch, createdDate); err != nil {
			return fmt.Errorf("failed to insert restaurants: %w", err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := s.source.ReadRestaurants(ctx, path, func(row domain.RestaurantRow) error {
		batch = append(batch, row)
		if len(batch) == s.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "uploaded restaurants", "file", path, "rows", total)
	return nil
}

func (s *UploadService) uploadMenuItems(ctx context.Context, w domain.RowWriter, path string) error {
	batch := make([]domain.MenuItemRow, 0, min(s.batchSize, 4096))
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.InsertMenuItems(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert menu items: %w", err)
		}
		total += len(batch)
		slog.InfoContext(ctx, fmt.Sprintf("Inserted %d rows", len(batch)))
		batch = batch[:0]
		return nil
	}

	err := s.source.ReadMenuItems(ctx, path, func(row domain.MenuItemRow) error {
		batch = append(batch, row)
		if len(batch) == s.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "uploaded menu items", "file", path, "rows", total)
	return nil
}

func (s *UploadService) uploadItems(ctx context.Context, w domain.RowWriter, path string) error {
	batch := make([]domain.ItemRow, 0, min(s.batchSize, 4096))
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.InsertItems(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert items: %w", err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := s.source.ReadItems(ctx, path, func(row domain.ItemRow) error {
		batch = append(batch, row)
		if len(batch) == s.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "uploaded items", "file", path, "rows", total)
	return nil
}

// FileDate reads the YYYY-MM-DD- prefix of a harvest file name.
func FileDate(path string) (time.Time, bool) {
	base := filepath.Base(path)
	if len(base) < len("2006-01-02-") || base[10] != '-' {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", base[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
