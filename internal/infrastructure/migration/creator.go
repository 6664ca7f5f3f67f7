package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	fileNamePattern = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)
	unsafeChars     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Entry is one migration pair found in a migrations directory
type Entry struct {
	Version uint
	Name    string
	HasUp   bool
	HasDown bool
}

// Base returns the file name prefix shared by the up and down files
func (e Entry) Base() string {
	return fmt.Sprintf("%06d_%s", e.Version, e.Name)
}

// List returns the migrations of src ordered by version. Files that do not
// follow the NNNNNN_name.(up|down).sql convention are ignored.
func List(src fs.FS) ([]Entry, error) {
	files, err := fs.Glob(src, "*.sql")
	if err != nil {
		return nil, err
	}
	byVersion := make(map[uint]*Entry)
	for _, f := range files {
		m := fileNamePattern.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		v, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			continue
		}
		e, ok := byVersion[uint(v)]
		if !ok {
			e = &Entry{Version: uint(v), Name: m[2]}
			byVersion[uint(v)] = e
		}
		if e.Name != m[2] {
			return nil, fmt.Errorf("migration %d has two names: %s and %s", v, e.Name, m[2])
		}
		if m[3] == "up" {
			e.HasUp = true
		} else {
			e.HasDown = true
		}
	}

	out := make([]Entry, 0, len(byVersion))
	for _, e := range byVersion {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Validate reports migrations missing either half of their pair
func Validate(entries []Entry) error {
	var missing []string
	for _, e := range entries {
		if !e.HasUp {
			missing = append(missing, e.Base()+".up.sql")
		}
		if !e.HasDown {
			missing = append(missing, e.Base()+".down.sql")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete migrations: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Create writes an empty up/down pair to dir, numbered one past the highest
// existing version
func Create(dir, name string) (Entry, error) {
	clean := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if clean == "" {
		return Entry{}, fmt.Errorf("invalid migration name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("create migrations directory: %w", err)
	}
	existing, err := List(os.DirFS(dir))
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Version: 1, Name: clean, HasUp: true, HasDown: true}
	if n := len(existing); n > 0 {
		e.Version = existing[n-1].Version + 1
	}

	up := filepath.Join(dir, e.Base()+".up.sql")
	down := filepath.Join(dir, e.Base()+".down.sql")
	if err := os.WriteFile(up, []byte("-- "+name+"\n"), 0o644); err != nil {
		return Entry{}, fmt.Errorf("write %s: %w", up, err)
	}
	if err := os.WriteFile(down, []byte("-- rollback "+name+"\n"), 0o644); err != nil {
		_ = os.Remove(up)
		return Entry{}, fmt.Errorf("write %s: %w", down, err)
	}
	return e, nil
}
