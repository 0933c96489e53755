package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://respawnbradley.gg/schemas/"

// Schema names.
const (
	SchemaHello  = "hello.schema.json"
	SchemaCmd    = "cmd.schema.json"
	SchemaResult = "result.schema.json"
	SchemaReply  = "reply.schema.json"
)

type Schemas struct {
	byName map[string]*jsonschema.Schema
}

var (
	schemasOnce sync.Once
	schemasVal  *Schemas
	schemasErr  error
)

// LoadSchemas compiles the embedded message schemas once.
func LoadSchemas() (*Schemas, error) {
	schemasOnce.Do(func() {
		schemasVal, schemasErr = compileSchemas()
	})
	return schemasVal, schemasErr
}

func compileSchemas() (*Schemas, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	names := []string{SchemaHello, SchemaCmd, SchemaResult, SchemaReply}
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
	}
	s := &Schemas{byName: map[string]*jsonschema.Schema{}}
	for _, name := range names {
		compiled, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		s.byName[name] = compiled
	}
	return s, nil
}

// ValidateRaw checks a raw JSON message against the named schema.
func (s *Schemas) ValidateRaw(name string, msg []byte) error {
	sch, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("unknown schema %s", name)
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return sch.Validate(v)
}

// Validate marshals v and checks it against the named schema.
func (s *Schemas) Validate(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.ValidateRaw(name, b)
}
