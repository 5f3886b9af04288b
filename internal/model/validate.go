package model

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names a request body schema.
type Schema string

const (
	SchemaTextItem  Schema = "text_item"
	SchemaImageItem Schema = "image_item"
	SchemaDrop      Schema = "drop"
	SchemaChat      Schema = "chat"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[Schema]*gojsonschema.Schema
	compileErr  error
)

// SchemaError lists why a request body does not match its schema.
type SchemaError struct {
	Schema Schema
	Errors []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Errors, "; "))
}

func compile() {
	compiled = map[Schema]*gojsonschema.Schema{}
	for _, name := range []Schema{SchemaTextItem, SchemaImageItem, SchemaDrop, SchemaChat} {
		raw, err := schemaFS.ReadFile("schemas/" + string(name) + ".json")
		if err != nil {
			compileErr = fmt.Errorf("read schema %s: %w", name, err)
			return
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			compileErr = fmt.Errorf("compile schema %s: %w", name, err)
			return
		}
		compiled[name] = s
	}
}

// Validate checks a raw JSON body against the named schema. A mismatch or a
// malformed body yields a *SchemaError.
func Validate(name Schema, body []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}
	s, ok := compiled[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	res, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &SchemaError{Schema: name, Errors: []string{"body is not valid JSON"}}
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return &SchemaError{Schema: name, Errors: msgs}
}
