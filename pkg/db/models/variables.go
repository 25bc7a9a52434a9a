package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Variables holds template variables rendered by the notification dispatcher.
type Variables map[string]string

// Value implements driver.Valuer. The JSON is sent as text so Postgres casts it
// into the jsonb column.
func (v Variables) Value() (driver.Value, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *Variables) Scan(src any) error {
	var raw []byte
	switch t := src.(type) {
	case nil:
		*v = Variables{}
		return nil
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return fmt.Errorf("unsupported variables type %T", src)
	}
	out := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*v = out
	return nil
}
