// Package artifacts writes run outputs (CSV, XLSX, chart PNG, PDF report)
// under a directory and publishes them to object storage.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dukex/datapilot/pkg/models"
)

const timestampLayout = "20060102-150405"

// Writer creates artifact files with UTC timestamped names that are unique
// within the process.
type Writer struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	used map[string]int
}

type Option func(*Writer)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:  dir,
		now:  time.Now,
		used: map[string]int{},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Dir returns the artifact directory.
func (w *Writer) Dir() string {
	return w.dir
}

// nextPath reserves <dir>/<prefix>-<ts>[-N].<ext> and makes sure the directory exists.
func (w *Writer) nextPath(prefix, ext string) (string, error) {
	err := os.MkdirAll(w.dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	base := fmt.Sprintf("%s-%s", prefix, w.now().UTC().Format(timestampLayout))

	w.mu.Lock()
	n := w.used[base+ext]
	w.used[base+ext] = n + 1
	w.mu.Unlock()

	if n > 0 {
		base = fmt.Sprintf("%s-%d", base, n)
	}

	return filepath.Join(w.dir, base+ext), nil
}

// columnNames returns the sorted union of the row keys.
func columnNames(rows []models.Row) []string {
	seen := map[string]struct{}{}

	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// cellText renders a value the way every artifact shows it. Missing and nil values are empty.
func cellText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", v)
	case float32:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
