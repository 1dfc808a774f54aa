package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "cs2d", "service":
		return serviceTemplate, nil
	case "schema":
		return schemaTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serviceTemplate = `name = "cs2d"
addr = ":9300"
cors_origins = ["http://localhost:3000"]
schema_dir = "schemas"
trailing_newline = true
disallow_unknown_fields = false
max_body_bytes = 1048576
log_level = "info"
# api_token = "change-me"
`

const schemaTemplate = `[[record]]
tag = "fahrstrasse"

[[record.field]]
key = "name"
type = "string"

[[record.field]]
key = "id"
type = "string"

[[record.field]]
key = "item"
type = "sequence"
record = "item"

[[record]]
tag = "item"

[[record.field]]
key = "magnetartikel"
type = "uint16"

[[record.field]]
key = "stellung"
type = "uint8"
optional = true
`
