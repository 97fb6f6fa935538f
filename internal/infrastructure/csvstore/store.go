package csvstore

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bkharvest/harvester/internal/domain"
)

// File name suffixes; every file is prefixed with the run date.
const (
	RestaurantsFile = "bk_restaurants.csv"
	MenuItemsFile   = "bk_data.csv"
	ItemsFile       = "bk_items.csv"

	dateLayout = "2006-01-02"
)

// Column headers of the three harvest files.
var (
	RestaurantColumns = []string{
		"restaurant_id", "store_id", "city", "state", "postal_code", "latitude", "longitude",
		"status", "has_breakfast", "has_delivery", "has_dine_in", "has_drive_thru",
		"has_mobile_ordering", "has_take_out", "pos_vendor", "total_weekly_hours",
	}
	MenuItemColumns = []string{
		"store_id", "item_id", "isAvailable", "price_min", "price_max", "price_default",
		"avg_calories", "created_date",
	}
	ItemColumns = []string{
		"item_id", "name", "image_url", "calories", "fat", "saturatedFat", "transFat",
		"cholesterol", "sodium", "carbohydrates", "fiber", "sugar", "proteins", "is_dummy",
		"category",
	}
)

var _ domain.HarvestStore = (*Store)(nil)

// Store writes harvest output as date-prefixed CSV files in one directory
// and reads them back for uploads and incremental refreshes. Callers pass the
// run day so every file of one run shares a prefix.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(day time.Time, name string) string {
	return filepath.Join(s.dir, day.Format(dateLayout)+"-"+name)
}

// create truncates the day's file, so it refuses to run once ctx is done.
func (s *Store) create(ctx context.Context, day time.Time, name string, header []string) (*os.File, *csv.Writer, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := s.path(day, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, "", err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, nil, "", err
	}
	return f, w, path, nil
}

// WriteRestaurants writes the restaurants file and returns its path.
func (s *Store) WriteRestaurants(ctx context.Context, day time.Time, rows []domain.RestaurantRow) (string, error) {
	f, w, path, err := s.create(ctx, day, RestaurantsFile, RestaurantColumns)
	if err != nil {
		return "", err
	}
	for _, r := range rows {
		if err := w.Write(restaurantRecord(r)); err != nil {
			f.Close()
			return path, err
		}
	}
	if err := finish(f, w); err != nil {
		return path, err
	}
	slog.InfoContext(ctx, "wrote restaurants", "file", path, "rows", len(rows))
	return path, nil
}

// OpenMenuItems creates the menu items file and returns an appender that
// flushes every batch to disk.
func (s *Store) OpenMenuItems(ctx context.Context, day time.Time) (domain.MenuItemAppender, error) {
	f, w, path, err := s.create(ctx, day, MenuItemsFile, MenuItemColumns)
	if err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return &menuAppender{f: f, w: w, path: path}, nil
}

// WriteItems writes the items file and returns its path.
func (s *Store) WriteItems(ctx context.Context, day time.Time, rows []domain.ItemRow) (string, error) {
	f, w, path, err := s.create(ctx, day, ItemsFile, ItemColumns)
	if err != nil {
		return "", err
	}
	for _, r := range rows {
		if err := w.Write(itemRecord(r)); err != nil {
			f.Close()
			return path, err
		}
	}
	if err := finish(f, w); err != nil {
		return path, err
	}
	slog.InfoContext(ctx, "wrote items", "file", path, "rows", len(rows))
	return path, nil
}

// LatestRestaurants finds the newest restaurants file in the output
// directory and returns its path with the distinct store IDs it lists, in
// file order.
func (s *Store) LatestRestaurants(ctx context.Context) (string, []string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, domain.ErrNoRestaurantsFile
	}
	if err != nil {
		return "", nil, err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.Contains(name, "bk_restaurants") && strings.HasSuffix(name, ".csv") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", nil, domain.ErrNoRestaurantsFile
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	path := filepath.Join(s.dir, names[0])

	seen := make(map[string]struct{})
	var ids []string
	err = s.ReadRestaurants(ctx, path, func(r domain.RestaurantRow) error {
		if _, ok := seen[r.StoreID]; ok || r.StoreID == "" {
			return nil
		}
		seen[r.StoreID] = struct{}{}
		ids = append(ids, r.StoreID)
		return nil
	})
	if err != nil {
		return path, nil, err
	}
	return path, ids, nil
}

// ReadRestaurants calls fn for every row of a restaurants file.
func (s *Store) ReadRestaurants(ctx context.Context, path string, fn func(domain.RestaurantRow) error) error {
	return readFile(ctx, path, RestaurantColumns, func(rec []string) error {
		row, err := parseRestaurant(rec)
		if err != nil {
			return err
		}
		return fn(row)
	})
}

// ReadMenuItems calls fn for every row of a menu items file.
func (s *Store) ReadMenuItems(ctx context.Context, path string, fn func(domain.MenuItemRow) error) error {
	return readFile(ctx, path, MenuItemColumns, func(rec []string) error {
		row, err := parseMenuItem(rec)
		if err != nil {
			return err
		}
		return fn(row)
	})
}

// ReadItems calls fn for every row of an items file.
func (s *Store) ReadItems(ctx context.Context, path string, fn func(domain.ItemRow) error) error {
	return readFile(ctx, path, ItemColumns, func(rec []string) error {
		row, err := parseItem(rec)
		if err != nil {
			return err
		}
		return fn(row)
	})
}

type menuAppender struct {
	f    *os.File
	w    *csv.Writer
	path string
}

func (a *menuAppender) Append(ctx context.Context, rows []domain.MenuItemRow) error {
	for _, r := range rows {
		if err := a.w.Write(menuItemRecord(r)); err != nil {
			return err
		}
	}
	a.w.Flush()
	return a.w.Error()
}

func (a *menuAppender) Path() string { return a.path }

func (a *menuAppender) Close() error {
	return finish(a.f, a.w)
}

func finish(f *os.File, w *csv.Writer) error {
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readFile streams the data rows of a CSV file whose header must match
// columns. Row numbers in errors count the header as line 1.
func readFile(ctx context.Context, path string, columns []string, fn func([]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = len(columns)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("%s: %w: header: %v", path, domain.ErrInvalidRow, err)
	}
	for i, col := range columns {
		if strings.TrimPrefix(header[i], "\ufeff") != col {
			return fmt.Errorf("%s: %w: column %d is %q, want %q", path, domain.ErrInvalidRow, i+1, header[i], col)
		}
	}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w: %v", path, domain.ErrInvalidRow, err)
		}
		if err := fn(rec); err != nil {
			if errors.Is(err, domain.ErrInvalidRow) {
				return fmt.Errorf("%s line %d: %w", path, line, err)
			}
			return err
		}
	}
}
