package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFiles embed.FS

var ErrInvalidMessage = errors.New("invalid message")

const schemaBase = "voxelgen://schemas/"

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		entries, err := schemaFiles.ReadDir("schemas")
		if err != nil {
			schemasErr = fmt.Errorf("read schemas: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		for _, e := range entries {
			data, err := schemaFiles.ReadFile("schemas/" + e.Name())
			if err != nil {
				schemasErr = fmt.Errorf("read schema %s: %w", e.Name(), err)
				return
			}
			if err := compiler.AddResource(schemaBase+e.Name(), bytes.NewReader(data)); err != nil {
				schemasErr = fmt.Errorf("add schema %s: %w", e.Name(), err)
				return
			}
		}
		compiled := make(map[string]*jsonschema.Schema, len(entries))
		for _, e := range entries {
			s, err := compiler.Compile(schemaBase + e.Name())
			if err != nil {
				schemasErr = fmt.Errorf("compile schema %s: %w", e.Name(), err)
				return
			}
			compiled[e.Name()] = s
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

func validate(name string, data []byte) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	schema, ok := all[name]
	if !ok {
		return fmt.Errorf("schema %s not found", name)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// DecodeGenerate validates a generate payload and decodes it.
func DecodeGenerate(payload []byte) (Generate, error) {
	var req Generate
	if err := validate("generate.schema.json", payload); err != nil {
		return req, err
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return req, nil
}

// DecodeCancel validates a cancel payload and decodes it.
func DecodeCancel(payload []byte) (Cancel, error) {
	var msg Cancel
	if err := validate("cancel.schema.json", payload); err != nil {
		return msg, err
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, nil
}

// ValidateChunk checks an encoded chunk document against the chunk schema.
// It checks shape only; world.Decode checks indices against the palette.
func ValidateChunk(data []byte) error {
	return validate("chunk.schema.json", data)
}
