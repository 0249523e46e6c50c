package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	todoSchemaURL     = "https://todo-cli.local/schemas/todo.json"
	todoListSchemaURL = "https://todo-cli.local/schemas/todos.json"
)

const todoSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "title", "completed"],
  "properties": {
    "id": {"type": "integer", "minimum": 1},
    "ownerId": {"type": "integer"},
    "title": {"type": "string"},
    "completed": {"type": "boolean"}
  }
}`

const todoListSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {"$ref": "todo.json"}
}`

var (
	todoSchema     *jsonschema.Schema
	todoListSchema *jsonschema.Schema
)

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(todoSchemaURL, strings.NewReader(todoSchemaJSON)); err != nil {
		panic(err)
	}
	if err := compiler.AddResource(todoListSchemaURL, strings.NewReader(todoListSchemaJSON)); err != nil {
		panic(err)
	}
	todoSchema = compiler.MustCompile(todoSchemaURL)
	todoListSchema = compiler.MustCompile(todoListSchemaURL)
}

// SchemaError reports a response body that does not look like a todo (or a
// list of todos).
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "invalid response: " + e.Message
	}
	return fmt.Sprintf("invalid response at %s: %s", e.Path, e.Message)
}

func validateBody(schema *jsonschema.Schema, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return &SchemaError{Message: err.Error()}
	}
	if err := schema.Validate(v); err != nil {
		return toSchemaError(err)
	}
	return nil
}

func toSchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaError{Message: err.Error()}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &SchemaError{Path: leaf.InstanceLocation, Message: leaf.Message}
}
