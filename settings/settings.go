// Package settings persists user preferences in a SQLite database,
// under the key names used by the web front end.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/logging"
)

// Persisted keys.
const (
	KeyDensity       = "worldDots_density"
	KeyDotSize       = "worldDots_dotSize"
	KeyColor         = "worldDots_color"
	KeyPanelPosition = "worldDots_panelPosition"
	KeyMask          = "svg-dot-work-mask"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("settings: key not found")

// Panel is the position of the floating control panel.
type Panel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPanel is the panel position before any drag.
var DefaultPanel = Panel{X: 24, Y: 24}

// Values are the persisted preferences, with defaults for missing keys.
type Values struct {
	Config dotgrid.Config `json:"config"`
	Panel  Panel          `json:"panel"`
	Mask   string         `json:"mask,omitempty"` // data URI, empty for the default mask
}

// Defaults returns the preferences of a fresh install.
func Defaults() Values {
	return Values{Config: dotgrid.DefaultConfig(), Panel: DefaultPanel}
}

// Store is a key/value settings table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// all returns every stored pair.
func (s *Store) all(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Load reads the preferences. Missing keys keep their default; values
// that do not parse are logged and keep their default too.
func (s *Store) Load(ctx context.Context) (Values, error) {
	stored, err := s.all(ctx)
	if err != nil {
		return Values{}, err
	}
	v := Defaults()
	invalid := func(key string, err error) {
		logging.Logger().Warn("ignoring invalid setting", slog.String("key", key), slog.Any("err", err))
	}

	if raw, ok := stored[KeyDensity]; ok {
		if d, err := strconv.ParseFloat(raw, 64); err != nil {
			invalid(KeyDensity, err)
		} else {
			v.Config.Density = int(d)
		}
	}
	if raw, ok := stored[KeyDotSize]; ok {
		if f, err := strconv.ParseFloat(raw, 64); err != nil {
			invalid(KeyDotSize, err)
		} else {
			v.Config.DotSize = f
		}
	}
	if raw, ok := stored[KeyColor]; ok && raw != "" {
		v.Config.Color = raw
	}
	if err := v.Config.Validate(); err != nil {
		invalid("config", err)
		v.Config = v.Config.Clamp()
	}
	if raw, ok := stored[KeyPanelPosition]; ok {
		var p Panel
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			invalid(KeyPanelPosition, err)
		} else {
			v.Panel = p
		}
	}
	v.Mask = stored[KeyMask]
	return v, nil
}

// SaveConfig stores the render parameters.
func (s *Store) SaveConfig(ctx context.Context, cfg dotgrid.Config) error {
	for _, kv := range [...][2]string{
		{KeyDensity, strconv.Itoa(cfg.Density)},
		{KeyDotSize, strconv.FormatFloat(cfg.DotSize, 'f', -1, 64)},
		{KeyColor, cfg.Color},
	} {
		if err := s.Set(ctx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// SavePanel stores the panel position as JSON.
func (s *Store) SavePanel(ctx context.Context, p Panel) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Set(ctx, KeyPanelPosition, string(b))
}

// SaveMask stores a custom mask as a data URI.
func (s *Store) SaveMask(ctx context.Context, dataURI string) error {
	return s.Set(ctx, KeyMask, dataURI)
}

// ClearMask goes back to the default mask.
func (s *Store) ClearMask(ctx context.Context) error {
	return s.Delete(ctx, KeyMask)
}
