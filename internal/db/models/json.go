package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// ErrUnsupportedJSONColumn is returned when scanning a JSON column from a
// database value that is neither []byte nor string.
var ErrUnsupportedJSONColumn = errors.New("unsupported source type for json column")

// JSONMap is an open key-value configuration map stored as a JSON column.
// It backs the catch-all role configuration fields (feature flags, dashboard
// config, menu restrictions) whose recognized keys are defined by the
// consuming surface, not by this schema.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil //nolint:nilnil // NULL column
	}

	return json.Marshal(m) //nolint:wrapcheck
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m) //nolint:wrapcheck
	case string:
		return json.Unmarshal([]byte(v), m) //nolint:wrapcheck
	default:
		return ErrUnsupportedJSONColumn
	}
}

// StringList is a list of strings stored as a JSON column. Used for
// permission snapshots, IP ranges and membership plan lists.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil //nolint:nilnil // NULL column
	}

	return json.Marshal(l) //nolint:wrapcheck
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l) //nolint:wrapcheck
	case string:
		return json.Unmarshal([]byte(v), l) //nolint:wrapcheck
	default:
		return ErrUnsupportedJSONColumn
	}
}
