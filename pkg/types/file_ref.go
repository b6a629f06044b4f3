package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FileRef is the opaque reference the blob-storage collaborator hands back
// for a proof-of-payment upload. Stored verbatim; the ledger never reads
// the file itself.
type FileRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Value marshals the reference into a jsonb column.
func (f FileRef) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan decodes a jsonb column back into the reference.
func (f *FileRef) Scan(value interface{}) error {
	if value == nil {
		*f = FileRef{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("file ref: unsupported source type %T", value)
	}
}
