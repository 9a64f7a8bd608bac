package registry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/toolsascode/shift/internal/idgen"
	"github.com/toolsascode/shift/internal/logger"
)

// GoFileTemplate renders a Go file that embeds a YAML unit and registers it
// with the global registry, for projects that compile their migrations in
const GoFileTemplate = `// Code generated by shift. DO NOT EDIT.

package {{.PackageName}}

import (
	_ "embed"

	"github.com/toolsascode/shift/migrations"
)

//go:embed {{.FileName}}
var {{.Ident}} []byte

func init() {
	migrations.MustRegisterYAML({{.Ident}})
}
`

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Loader loads YAML migration units from a directory. Files are named
// "<id>.yaml" (or .yml).
type Loader struct {
	dir          string
	registry     Registry
	writeGoFiles bool
	seenFiles    map[string]time.Time // Track files we've seen and their mod times
	mu           sync.RWMutex
	watchContext context.Context
	watchCancel  context.CancelFunc
	watching     bool
}

// NewLoader creates a loader for dir
func NewLoader(dir string) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		dir:          dir,
		seenFiles:    make(map[string]time.Time),
		watchContext: ctx,
		watchCancel:  cancel,
	}
}

// SetWriteGoFiles makes the loader generate a Go wrapper next to every unit
// that lacks one
func (l *Loader) SetWriteGoFiles(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeGoFiles = enabled
}

// LoadAll registers every unit in the directory. A unit that fails to load
// is an error.
func (l *Loader) LoadAll(reg Registry) error {
	l.registry = reg

	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		logger.Warnf("Migrations directory does not exist: %s", l.dir)
		return nil
	}

	files, err := l.unitFiles()
	if err != nil {
		return err
	}
	for path, modTime := range files {
		if err := l.loadFile(path); err != nil {
			return err
		}
		l.mu.Lock()
		l.seenFiles[path] = modTime
		l.mu.Unlock()
	}

	logger.Infof("Loaded %d migration(s) from %s", len(files), l.dir)
	return nil
}

// unitFiles returns the unit files directly under dir with their mod times
func (l *Loader) unitFiles() (map[string]time.Time, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("error scanning migrations directory: %w", err)
	}
	files := make(map[string]time.Time)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := unitID(entry.Name())
		if !ok || !idgen.IsValidID(id) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files[filepath.Join(l.dir, entry.Name())] = info.ModTime()
	}
	return files, nil
}

func unitID(filename string) (string, bool) {
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(filename, ext) {
			return strings.TrimSuffix(filename, ext), true
		}
	}
	return "", false
}

// loadFile parses and registers one unit
func (l *Loader) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if id, _ := unitID(filepath.Base(path)); id != m.ID {
		return fmt.Errorf("%s: file name does not match migration id %q", path, m.ID)
	}
	if l.registry != nil {
		if err := l.registry.Register(m); err != nil {
			return fmt.Errorf("failed to register migration: %w", err)
		}
	}

	l.mu.RLock()
	writeGo := l.writeGoFiles
	l.mu.RUnlock()
	if writeGo {
		if _, err := l.ensureGoFileExists(path, m.ID); err != nil {
			logger.Warnf("Failed to write Go wrapper for %s: %v", path, err)
		}
	}

	logger.Debugf("Registered migration: %s", m.ID)
	return nil
}

// ensureGoFileExists writes the Go wrapper for a unit unless it exists.
// A read-only filesystem is not an error; the unit is still registered.
func (l *Loader) ensureGoFileExists(unitPath, id string) (string, error) {
	goFilePath := strings.TrimSuffix(unitPath, filepath.Ext(unitPath)) + ".go"
	if _, err := os.Stat(goFilePath); err == nil {
		return goFilePath, nil
	}

	file, err := os.Create(goFilePath)
	if err != nil {
		logger.Warnf("Cannot create .go file %s (filesystem may be read-only): %v", goFilePath, err)
		return "", nil
	}
	defer func() { _ = file.Close() }()

	if err := WriteGoFile(file, filepath.Base(filepath.Dir(unitPath)), filepath.Base(unitPath), id); err != nil {
		return "", fmt.Errorf("failed to generate file %s: %w", goFilePath, err)
	}
	logger.Infof("Auto-generated .go file: %s", goFilePath)
	return goFilePath, nil
}

// WriteGoFile renders GoFileTemplate for the unit stored in fileName
func WriteGoFile(w io.Writer, packageName, fileName, id string) error {
	tmpl, err := template.New("goFile").Parse(GoFileTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	pkg := strings.ToLower(nonIdent.ReplaceAllString(packageName, "_"))
	if pkg == "" || (pkg[0] >= '0' && pkg[0] <= '9') {
		pkg = "migrations"
	}
	return tmpl.Execute(w, struct {
		PackageName string
		FileName    string
		Ident       string
	}{
		PackageName: pkg,
		FileName:    fileName,
		Ident:       "unit_" + nonIdent.ReplaceAllString(id, "_"),
	})
}

// Save writes m to dir as "<id>.yaml" and returns the path
func Save(dir string, m *Migration) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	data, err := m.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode migration: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}
	path := filepath.Join(dir, m.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write migration %s: %w", path, err)
	}
	return path, nil
}

// StartWatching rescans the directory every interval, registering new and
// modified units
func (l *Loader) StartWatching(interval time.Duration) {
	l.mu.Lock()
	if l.watching {
		l.mu.Unlock()
		return // Already watching
	}
	l.watching = true
	l.mu.Unlock()

	logger.Infof("Starting migration file watcher (checking every %s)", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.watchContext.Done():
				logger.Info("Migration file watcher stopped")
				return
			case <-ticker.C:
				if err := l.scanAndLoad(); err != nil {
					logger.Warnf("Error scanning for new migrations: %v", err)
				}
			}
		}
	}()
}

// StopWatching stops the background file watcher
func (l *Loader) StopWatching() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.watching {
		return
	}

	l.watchCancel()
	l.watching = false
}

// scanAndLoad registers units that are new or modified since the last scan
func (l *Loader) scanAndLoad() error {
	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		return nil // Directory doesn't exist, skip
	}

	files, err := l.unitFiles()
	if err != nil {
		return err
	}

	for path, modTime := range files {
		l.mu.RLock()
		seenTime, seen := l.seenFiles[path]
		l.mu.RUnlock()

		switch {
		case !seen:
			logger.Infof("New migration file detected: %s", path)
		case modTime.After(seenTime):
			logger.Infof("Migration file modified: %s", path)
		default:
			continue
		}
		if err := l.loadFile(path); err != nil {
			logger.Warnf("Failed to load migration from %s: %v", path, err)
			delete(files, path)
		}
	}

	// Update seen files map
	l.mu.Lock()
	l.seenFiles = files
	l.mu.Unlock()
	return nil
}
