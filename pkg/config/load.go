package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	_ "time/tzdata"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaDocument []byte

const schemaURL = "config.schema.json"

// ErrInvalid is returned when a configuration does not pass validation.
var ErrInvalid = errors.New("invalid configuration")

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaDocument))
		if err != nil {
			schemaErr = fmt.Errorf("error reading schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("error adding schema: %w", err)
			return
		}

		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// LoadFile reads and validates the configuration at path. The format is chosen from the extension:
// .yaml and .yml are YAML, anything else is JSON with comments allowed.
func LoadFile(path string) (*Bot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	var b *Bot
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = ParseYAML(data)
	default:
		b, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ParseJSON parses a JSON configuration. Comments and trailing commas are allowed.
func ParseJSON(data []byte) (*Bot, error) {
	return parse(jsonc.ToJSON(data))
}

// ParseYAML parses a YAML configuration.
func ParseYAML(data []byte) (*Bot, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error converting yaml: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Bot, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	b := new(Bot)
	if err := json.Unmarshal(raw, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := b.applyDefaults(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return b, nil
}
