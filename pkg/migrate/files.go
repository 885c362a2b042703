package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/pressly/goose/v3"
)

// versionLayout is the timestamp prefix every migration file carries.
const versionLayout = "20060102150405"

var sqlTemplate = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.}}
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback {{.}}
-- +goose StatementEnd
`))

// slug lowercases name and folds every run of non-alphanumerics into a single
// underscore.
func slug(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// CreateSQLMigration writes an empty goose migration named
// <dir>/<YYYYMMDDHHMMSS>_<slug>.sql and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" || name == "" {
		return "", errors.New("dir and name are required")
	}
	base := slug(name)
	if base == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	var body bytes.Buffer
	if err := sqlTemplate.Execute(&body, base); err != nil {
		return "", err
	}

	target := filepath.Join(dir, time.Now().UTC().Format(versionLayout)+"_"+base+".sql")
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", target, err)
	}
	if _, err := f.Write(body.Bytes()); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, f.Close()
}

// ValidateDir checks the migrations on disk in dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	return checkMigrations(os.DirFS(dir), ".")
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	return checkMigrations(embedded, embeddedDir)
}

// checkMigrations requires every .sql file under root to carry a unique
// timestamp version, a lowercase slug and both goose sections.
func checkMigrations(fsys fs.FS, root string) error {
	files, err := fs.Glob(fsys, path.Join(root, "*.sql"))
	if err != nil {
		return err
	}
	versions := make(map[int64]string, len(files))
	for _, file := range files {
		name := path.Base(file)
		if err := checkFilename(name); err != nil {
			return err
		}
		version, err := goose.NumericComponent(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if other, dup := versions[version]; dup {
			return fmt.Errorf("version %d used by both %s and %s", version, other, name)
		}
		versions[version] = name

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return err
		}
		for _, section := range [...]string{"-- +goose Up", "-- +goose Down"} {
			if !bytes.Contains(raw, []byte(section)) {
				return fmt.Errorf("%s: missing %q section", name, section)
			}
		}
	}
	return nil
}

func checkFilename(name string) error {
	stem := strings.TrimSuffix(name, ".sql")
	prefix, rest, ok := strings.Cut(stem, "_")
	if !ok || len(prefix) != len(versionLayout) || rest == "" || slug(rest) != rest {
		return fmt.Errorf("%s: expected %s_name.sql", name, "YYYYMMDDHHMMSS")
	}
	if _, err := time.Parse(versionLayout, prefix); err != nil {
		return fmt.Errorf("%s: bad version prefix: %w", name, err)
	}
	return nil
}
