package transcript

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/transcript.schema.json
var transcriptSchemaJSON []byte

const transcriptSchemaURL = "https://pactaudit.local/schema/transcript-v4.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(transcriptSchemaURL, bytes.NewReader(transcriptSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("transcript: load schema resource: %w", err)
			return
		}
		s, err := c.Compile(transcriptSchemaURL)
		if err != nil {
			compileErr = fmt.Errorf("transcript: compile schema: %w", err)
			return
		}
		compiledSchema = s
	})
	return compiledSchema, compileErr
}

// ValidateStructure runs the embedded JSON Schema over a decoded
// transcript document (map[string]interface{}), catching malformed
// transcripts with a schema-validation error distinct from, and prior
// to, replay's own INVALID_STRUCTURE check. A schema-valid document
// can still fail replay's hash-chain/signature checks; this only
// guards shape.
func ValidateStructure(doc map[string]interface{}) error {
	s, err := compiled()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("SCHEMA_INVALID: %w", err)
	}
	return nil
}
