package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/hyprshutdown/internal/migrate"
)

func init() {
	migrate.Config.Register(migrate.Migration{
		Version:     2,
		Description: "group flat v1 keys into [ui], [apps] and [session]",
		Upgrade:     upgradeV1Sections,
	})
}

// v1Moves maps the flat top-level keys of the version 1 schema, which mirrored
// the command-line flags, to their section and key in version 2.
var v1Moves = map[string][2]string{
	"top_label": {"ui", "top_label"},
	"timeout":   {"ui", "close_timeout_seconds"},
	"force":     {"ui", "force_kill"},
	"ignore":    {"apps", "ignore"},
	"post_cmd":  {"apps", "post_cmd"},
	"vt":        {"session", "vt"},
}

// upgradeV1Sections moves flat v1 keys into their v2 sections. A key that is
// already present in the target section wins over the flat one.
func upgradeV1Sections(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode v1 config: %w", err)
	}

	for flat, dst := range v1Moves {
		val, ok := doc[flat]
		if !ok {
			continue
		}
		delete(doc, flat)

		section, ok := doc[dst[0]].(map[string]any)
		if !ok {
			section = map[string]any{}
			doc[dst[0]] = section
		}
		if _, exists := section[dst[1]]; !exists {
			section[dst[1]] = val
		}
	}
	doc["version"] = 2

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode v2 config: %w", err)
	}
	return buf.Bytes(), nil
}
