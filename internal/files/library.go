// Package files keeps imported ledger workbooks in one folder per city.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"payminder/internal/core"
	"payminder/internal/ledger/excel"
	"payminder/internal/log"
)

const importStampLayout = "20060102_150405"

var (
	ErrInvalidCity   = errors.New("invalid city name")
	ErrUnsupported   = errors.New("unsupported file type")
	ErrNoCityLedgers = errors.New("city has no ledgers")
)

type Library struct {
	base   string
	logger *log.Logger
	now    func() time.Time
}

func NewLibrary(base string, logger *log.Logger) *Library {
	return &Library{
		base:   base,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentFiles),
		now:    time.Now,
	}
}

func (l *Library) Base() string {
	return l.base
}

// CityDir returns the folder for city, creating it if needed.
func (l *Library) CityDir(city string) (string, error) {
	if err := validateCity(city); err != nil {
		return "", err
	}
	dir := filepath.Join(l.base, city)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create city folder: %w", err)
	}
	return dir, nil
}

// Import copies src into city's folder under a timestamped name and
// returns the new path.
func (l *Library) Import(src, city string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", src, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("import %s: is a directory", src)
	}
	if !excel.Supported(src) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(src))
	}

	dir, err := l.CityDir(city)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	dst := filepath.Join(dir, fmt.Sprintf("%s_%s%s", base, l.now().Format(importStampLayout), ext))

	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	l.logger.Info("Ledger imported",
		log.FieldOperation, log.OpImport,
		log.FieldCity, city,
		log.FieldLedger, dst)
	return dst, nil
}

// Cities lists city folders in name order. A missing base folder has none.
func (l *Library) Cities() ([]string, error) {
	entries, err := os.ReadDir(l.base)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	var cities []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			cities = append(cities, e.Name())
		}
	}
	sort.Strings(cities)
	return cities, nil
}

// CityFiles lists the ledgers in one city's folder in name order.
func (l *Library) CityFiles(city string) ([]string, error) {
	if err := validateCity(city); err != nil {
		return nil, err
	}
	dir := filepath.Join(l.base, city)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", city, err)
	}
	var out []string
	for _, e := range entries {
		// Skip Excel lock files ("~$book.xlsx").
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") || !excel.Supported(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// LatestByCity returns the most recently modified ledger of city.
func (l *Library) LatestByCity(city string) (string, error) {
	paths, err := l.CityFiles(city)
	if err != nil {
		return "", err
	}
	var (
		latest string
		mod    time.Time
	)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(mod) {
			latest, mod = p, info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w: %s", ErrNoCityLedgers, city)
	}
	return latest, nil
}

// Sources lists every ledger of every city, cities and files in name
// order.
func (l *Library) Sources() ([]core.Source, error) {
	cities, err := l.Cities()
	if err != nil {
		return nil, err
	}
	var out []core.Source
	for _, city := range cities {
		paths, err := l.CityFiles(city)
		if err != nil {
			l.logger.Warn("Skipping unreadable city folder", log.FieldCity, city, log.FieldError, err)
			continue
		}
		for _, p := range paths {
			out = append(out, core.Source{Ledger: p, City: city})
		}
	}
	return out, nil
}

// SourcesFor narrows Sources to one city, or returns all when city is "".
func (l *Library) SourcesFor(city string) ([]core.Source, error) {
	all, err := l.Sources()
	if err != nil || city == "" {
		return all, err
	}
	var out []core.Source
	for _, s := range all {
		if strings.EqualFold(s.City, city) {
			out = append(out, s)
		}
	}
	return out, nil
}

// SourceFunc adapts Sources for callers that re-list on every run.
func (l *Library) SourceFunc(context.Context) ([]core.Source, error) {
	return l.Sources()
}

func validateCity(city string) error {
	c := strings.TrimSpace(city)
	if c == "" || c == "." || c == ".." || strings.ContainsAny(c, `/\`) || c != city {
		return fmt.Errorf("%w: %q", ErrInvalidCity, city)
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return nil
}
