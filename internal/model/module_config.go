package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LocaleMessages holds per-locale message overrides shown to attendees
// (e.g. the text displayed after a request is accepted).  The outer key is
// a locale tag ("en", "es"), the inner key a message identifier.  The map
// is a first-class structure in the domain and is serialized to a JSON
// column only at the persistence edge via Value/Scan.
type LocaleMessages map[string]map[string]string

// Value implements driver.Valuer so LocaleMessages can be written to a
// JSON column.  A nil map is stored as SQL NULL.
func (m LocaleMessages) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading the JSON column back.  NULL
// scans to a nil map.
func (m *LocaleMessages) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var bs []byte
	switch v := src.(type) {
	case []byte:
		bs = v
	case string:
		bs = []byte(v)
	default:
		return fmt.Errorf("locale messages: unsupported scan type %T", src)
	}
	if len(bs) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(bs, m)
}

// ModuleConfig carries the per-event settings of one module instance.
// A row is created lazily with module defaults the first time it is read
// and is only ever mutated by operators.  Configs are never deleted; their
// lifetime is the lifetime of the event.
//
// Fields:
//  ID                – primary key identifier.
//  EventID           – event the config belongs to.
//  Module            – module name ("music" or "karaoke").
//  Enabled           – whether the module accepts new requests.
//  CooldownSeconds   – minimum seconds between two requests from the same
//                      requester (music admission policy; 0 disables it).
//  MaxPerPerson      – maximum concurrent non-terminal requests per
//                      requester (karaoke admission policy; 0 disables it).
//  ShowQueueToClient – whether attendee/public clients may read the queue.
//  CustomMessages    – per-locale message overrides.
type ModuleConfig struct {
	ID                uint64         `json:"id"`                   // module_configs.id
	EventID           uint64         `json:"event_id"`             // module_configs.event_id
	Module            string         `json:"module"`               // module_configs.module
	Enabled           bool           `json:"enabled"`              // module_configs.enabled
	CooldownSeconds   int            `json:"cooldown_seconds"`     // module_configs.cooldown_seconds
	MaxPerPerson      int            `json:"max_per_person"`       // module_configs.max_per_person
	ShowQueueToClient bool           `json:"show_queue_to_client"` // module_configs.show_queue_to_client
	CustomMessages    LocaleMessages `json:"custom_messages"`      // module_configs.custom_messages
	CreatedAt         time.Time      `json:"created_at"`           // module_configs.created_at
	UpdatedAt         time.Time      `json:"updated_at"`           // module_configs.updated_at
}

// ConfigDefaults are the values persisted when a config row is created on
// first access.  Each module descriptor carries its own defaults.
type ConfigDefaults struct {
	Enabled           bool
	CooldownSeconds   int
	MaxPerPerson      int
	ShowQueueToClient bool
}

// ConfigPatch is a partial update applied by operators.  Nil fields are
// left untouched.
type ConfigPatch struct {
	Enabled           *bool          `json:"enabled"`
	CooldownSeconds   *int           `json:"cooldown_seconds"`
	MaxPerPerson      *int           `json:"max_per_person"`
	ShowQueueToClient *bool          `json:"show_queue_to_client"`
	CustomMessages    LocaleMessages `json:"custom_messages"`
}
