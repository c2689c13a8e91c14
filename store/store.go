// Package store persists the IBGE lists and the recent selections as JSON
// files under the user cache and config directories.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ecoleta-cli/model"
	"ecoleta-cli/nav"
)

const (
	appDir            = "ecoleta-cli"
	DefaultTTL        = 7 * 24 * time.Hour
	maxRecentSelected = 8
)

type cacheEnvelope[T any] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Data      T         `json:"data"`
}

type selectionHistory struct {
	Selections []nav.Params `json:"selections"`
}

// Store reads and writes the cache and history files.
type Store struct {
	cacheDir  string
	configDir string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a store rooted at the given directories. Empty directories fall
// back to the user cache and config directories.
func New(cacheDir, configDir string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(cacheDir) == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("user cache dir: %w", err)
		}
		cacheDir = dir
	}
	if strings.TrimSpace(configDir) == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("user config dir: %w", err)
		}
		configDir = dir
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		cacheDir:  filepath.Join(cacheDir, appDir),
		configDir: filepath.Join(configDir, appDir),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// LoadUFs returns the cached state list and whether it is still fresh.
func (s *Store) LoadUFs() ([]model.UF, bool, error) {
	cache, err := loadCache[[]model.UF](s.cachePath("ufs.json"))
	if err != nil {
		return nil, false, err
	}
	return cache.Data, s.fresh(cache.UpdatedAt), nil
}

func (s *Store) SaveUFs(ufs []model.UF) error {
	return saveCache(s.cachePath("ufs.json"), ufs, s.now())
}

// LoadCities returns the cached city list of uf and whether it is still fresh.
func (s *Store) LoadCities(uf string) ([]model.Municipio, bool, error) {
	name, err := citiesFile(uf)
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Municipio](s.cachePath(name))
	if err != nil {
		return nil, false, err
	}
	return cache.Data, s.fresh(cache.UpdatedAt), nil
}

func (s *Store) SaveCities(uf string, cities []model.Municipio) error {
	name, err := citiesFile(uf)
	if err != nil {
		return err
	}
	return saveCache(s.cachePath(name), cities, s.now())
}

// LoadRecentSelections returns the remembered selections, newest first.
func (s *Store) LoadRecentSelections() ([]nav.Params, error) {
	data, err := os.ReadFile(s.configPath("history.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var history selectionHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.New("invalid selection history format")
	}
	return history.Selections, nil
}

// RememberSelection moves the selection to the front of the history.
func (s *Store) RememberSelection(selection nav.Params) error {
	if strings.TrimSpace(selection.UF) == "" || strings.TrimSpace(selection.City) == "" {
		return errors.New("uf and city are required")
	}
	history, _ := s.LoadRecentSelections()
	next := []nav.Params{selection}

	for _, existing := range history {
		if strings.EqualFold(existing.UF, selection.UF) && strings.EqualFold(existing.City, selection.City) {
			continue
		}
		next = append(next, existing)
		if len(next) >= maxRecentSelected {
			break
		}
	}

	return writeJSON(s.configPath("history.json"), selectionHistory{Selections: next})
}

func (s *Store) fresh(updatedAt time.Time) bool {
	if updatedAt.IsZero() {
		return false
	}
	return s.now().Sub(updatedAt) <= s.ttl
}

func (s *Store) cachePath(name string) string {
	return filepath.Join(s.cacheDir, name)
}

func (s *Store) configPath(name string) string {
	return filepath.Join(s.configDir, name)
}

func citiesFile(uf string) (string, error) {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	if uf == "" || strings.ContainsAny(uf, `/\.`) {
		return "", fmt.Errorf("invalid uf %q", uf)
	}
	return fmt.Sprintf("cities_%s.json", uf), nil
}

func loadCache[T any](path string) (cacheEnvelope[T], error) {
	var cache cacheEnvelope[T]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return cache, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, err
	}
	return cache, nil
}

func saveCache[T any](path string, data T, now time.Time) error {
	return writeJSON(path, cacheEnvelope[T]{UpdatedAt: now, Data: data})
}

func writeJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
