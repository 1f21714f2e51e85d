package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskboard/internal/model"
)

type settingRow struct {
	Key   string         `db:"key"`
	Value sql.NullString `db:"value"`
}

// GetSettings returns every known setting, using defaults for keys that
// were never saved.
func (s *SQLiteStore) GetSettings(ctx context.Context) (model.Settings, error) {
	var rows []settingRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT key, value FROM settings"); err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}

	stored := make(map[string]sql.NullString, len(rows))
	for _, r := range rows {
		stored[r.Key] = r.Value
	}

	settings := model.DefaultSettings()
	for _, key := range model.SettingKeys {
		if raw, ok := stored[key]; ok {
			settings[key] = decodeSetting(raw)
		}
	}
	return settings, nil
}

// SaveSettings upserts every key in settings in one transaction.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings model.Settings) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for key, value := range settings {
			if err := upsertSetting(ctx, tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// getSetting reads and decodes a single setting. ok is false when the key
// has never been stored.
func getSetting(ctx context.Context, q sqlx.QueryerContext, key string) (value any, ok bool, err error) {
	var rows []sql.NullString
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT value FROM settings WHERE key = ?", key); err != nil {
		return nil, false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return decodeSetting(rows[0]), true, nil
}

// upsertSetting stores value under key. Strings are stored verbatim;
// everything else is JSON-encoded.
func upsertSetting(ctx context.Context, ex sqlx.ExecerContext, key string, value any) error {
	var encoded string
	switch v := value.(type) {
	case string:
		encoded = v
	case *string:
		if v == nil {
			encoded = "null"
		} else {
			encoded = *v
		}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding setting %s: %w", key, err)
		}
		encoded = string(data)
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, encoded)
	if err != nil {
		return fmt.Errorf("upserting setting %s: %w", key, err)
	}
	return nil
}

// decodeSetting JSON-decodes a stored value, falling back to the raw
// string when it is not valid JSON.
func decodeSetting(raw sql.NullString) any {
	if !raw.Valid {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw.String), &decoded); err != nil {
		return raw.String
	}
	return decoded
}
