package document

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const modelSchemaVersion = "v1.0.0"

const modelSchemaURL = "document.schema.json"

//go:embed schema/document.schema.json
var modelSchemaJSON []byte

var (
	modelSchemaOnce sync.Once
	modelSchema     *jsonschema.Schema
	modelSchemaErr  error
)

// Model is the JSON form of a Document written next to each DOCX artifact.
type Model struct {
	SchemaVersion string  `json:"schema_version"`
	Title         string  `json:"title,omitempty"`
	GeneratedAt   string  `json:"generated_at,omitempty"`
	Blocks        []Block `json:"blocks"`
}

func NewModel(d Document) *Model {
	title := ""
	for _, b := range d.Blocks {
		if b.Kind == KindHeading && b.Level == 0 {
			title = b.Text
			break
		}
	}
	blocks := d.Clone().Blocks
	if blocks == nil {
		blocks = []Block{}
	}
	return &Model{
		SchemaVersion: modelSchemaVersion,
		Title:         title,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Blocks:        blocks,
	}
}

func (m *Model) Document() Document {
	return New(m.Blocks...)
}

func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("document model is nil")
	}
	if m.SchemaVersion == "" {
		return fmt.Errorf("schema_version is required")
	}
	for i, b := range m.Blocks {
		if b.Kind == KindHeading && b.Text == "" && b.Raw == "" {
			return fmt.Errorf("block %d: heading text is required", i)
		}
	}
	return nil
}

func SaveModel(path string, m *Model) error {
	if err := validateModelWithSchema(m); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0644)
}

func LoadModel(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse document model %s: %w", path, err)
	}
	schema, err := compiledModelSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("document model schema validation failed: %w", err)
	}
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func validateModelWithSchema(m *Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	schema, err := compiledModelSchema()
	if err != nil {
		return err
	}

	var v any
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal document model for schema validation: %w", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to normalize document model for schema validation: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("document model schema validation failed: %w", err)
	}
	return nil
}

func compiledModelSchema() (*jsonschema.Schema, error) {
	modelSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(modelSchemaURL, bytes.NewReader(modelSchemaJSON)); err != nil {
			modelSchemaErr = fmt.Errorf("failed to load document model schema: %w", err)
			return
		}
		modelSchema, modelSchemaErr = compiler.Compile(modelSchemaURL)
		if modelSchemaErr != nil {
			modelSchemaErr = fmt.Errorf("failed to compile document model schema: %w", modelSchemaErr)
		}
	})
	return modelSchema, modelSchemaErr
}
