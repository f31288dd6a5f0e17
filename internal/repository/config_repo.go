package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/live-request-queue/internal/model"
)

// ConfigRepo manages per-event module settings.  A config row is created
// lazily with the module's defaults on the first read, so later reads are
// idempotent.  There is no delete: configs live and die with the event.
type ConfigRepo struct {
	db *sql.DB
}

// NewConfigRepo returns a ConfigRepo bound to the given database.
func NewConfigRepo(db *sql.DB) *ConfigRepo { return &ConfigRepo{db: db} }

const configCols = "id, event_id, module, enabled, cooldown_seconds, max_per_person, show_queue_to_client, custom_messages, created_at, updated_at"

func scanConfig(row interface{ Scan(...any) error }) (*model.ModuleConfig, error) {
	var cfg model.ModuleConfig
	err := row.Scan(
		&cfg.ID,
		&cfg.EventID,
		&cfg.Module,
		&cfg.Enabled,
		&cfg.CooldownSeconds,
		&cfg.MaxPerPerson,
		&cfg.ShowQueueToClient,
		&cfg.CustomMessages,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetOrCreate returns the event's config for the module, inserting the
// defaults first when no row exists yet.  The insert ignores duplicate-key
// failures so two concurrent first reads cannot error out; both end up
// re-reading the same persisted row.
func (r *ConfigRepo) GetOrCreate(ctx context.Context, module string, eventID uint64, def model.ConfigDefaults) (*model.ModuleConfig, error) {
	q := `SELECT ` + configCols + ` FROM module_configs WHERE event_id = ? AND module = ?`
	cfg, err := scanConfig(r.db.QueryRowContext(ctx, q, eventID, module))
	if err == nil {
		return cfg, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	const insQ = `INSERT IGNORE INTO module_configs
		(event_id, module, enabled, cooldown_seconds, max_per_person, show_queue_to_client)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, insQ, eventID, module,
		def.Enabled, def.CooldownSeconds, def.MaxPerPerson, def.ShowQueueToClient); err != nil {
		return nil, err
	}
	return scanConfig(r.db.QueryRowContext(ctx, q, eventID, module))
}

// Update applies a partial config change and returns the full resulting
// row.  Value ranges are validated before any write: negative cooldowns or
// caps are rejected as validation errors.
func (r *ConfigRepo) Update(ctx context.Context, module string, eventID uint64, def model.ConfigDefaults, patch model.ConfigPatch) (*model.ModuleConfig, error) {
	if patch.CooldownSeconds != nil && *patch.CooldownSeconds < 0 {
		return nil, Validation("cooldown_seconds must be >= 0")
	}
	if patch.MaxPerPerson != nil && *patch.MaxPerPerson < 0 {
		return nil, Validation("max_per_person must be >= 0")
	}

	cfg, err := r.GetOrCreate(ctx, module, eventID, def)
	if err != nil {
		return nil, err
	}
	if patch.Enabled != nil {
		cfg.Enabled = *patch.Enabled
	}
	if patch.CooldownSeconds != nil {
		cfg.CooldownSeconds = *patch.CooldownSeconds
	}
	if patch.MaxPerPerson != nil {
		cfg.MaxPerPerson = *patch.MaxPerPerson
	}
	if patch.ShowQueueToClient != nil {
		cfg.ShowQueueToClient = *patch.ShowQueueToClient
	}
	if patch.CustomMessages != nil {
		cfg.CustomMessages = patch.CustomMessages
	}

	const updQ = `UPDATE module_configs
		SET enabled = ?, cooldown_seconds = ?, max_per_person = ?, show_queue_to_client = ?, custom_messages = ?
		WHERE event_id = ? AND module = ?`
	if _, err := r.db.ExecContext(ctx, updQ,
		cfg.Enabled, cfg.CooldownSeconds, cfg.MaxPerPerson, cfg.ShowQueueToClient, cfg.CustomMessages,
		eventID, module); err != nil {
		return nil, err
	}

	q := `SELECT ` + configCols + ` FROM module_configs WHERE event_id = ? AND module = ?`
	return scanConfig(r.db.QueryRowContext(ctx, q, eventID, module))
}
