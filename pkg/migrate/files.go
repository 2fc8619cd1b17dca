package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	nonWordRe  = regexp.MustCompile(`[^a-z0-9]+`)
)

const fileTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// Create writes an empty goose migration named <timestamp>_<name>.sql into
// dir and returns its path.
func Create(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	base := fileBase(name)
	if base == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, now.UTC().Format(versionLayout)+"_"+base+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, fileTemplate, base); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func fileBase(name string) string {
	s := nonWordRe.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(s, "_")
}

// Validate checks every .sql file in fsys: the name carries a unique
// version, both directions are declared, and statement blocks are closed.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	versions := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("%s: name must look like %s_snake_name.sql", name, versionLayout)
		}
		if other, dup := versions[m[1]]; dup {
			return fmt.Errorf("%s: version %s already used by %s", name, m[1], other)
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := checkAnnotations(body); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func checkAnnotations(body []byte) error {
	var up, down bool
	open := 0
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "-- +goose ") {
			continue
		}
		switch strings.Fields(strings.TrimPrefix(line, "-- +goose "))[0] {
		case "Up":
			up = true
		case "Down":
			down = true
		case "StatementBegin":
			open++
		case "StatementEnd":
			open--
			if open < 0 {
				return fmt.Errorf("StatementEnd without StatementBegin")
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	switch {
	case !up:
		return fmt.Errorf("missing -- +goose Up")
	case !down:
		return fmt.Errorf("missing -- +goose Down")
	case open != 0:
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}
