package latticefile

import (
	"bytes"
	_ "embed"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("lattice-file.json", bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("latticefile: invalid embedded schema: %v", err))
	}
	schema, err := compiler.Compile("lattice-file.json")
	if err != nil {
		panic(fmt.Sprintf("latticefile: compile embedded schema: %v", err))
	}
	compiledSchema = schema
}

// ValidateSchema checks a decoded-to-`any` lattice document (maps and
// slices, as produced by encoding/json.Unmarshal into an interface{} or
// goccy/go-yaml's equivalent) against the bundled JSON Schema, before any
// typed decoding is attempted. Schema errors are reported in one pass
// rather than surfacing as confusing type-decode failures field by field.
func ValidateSchema(doc any) error {
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("latticefile: schema validation failed: %w", err)
	}
	return nil
}
