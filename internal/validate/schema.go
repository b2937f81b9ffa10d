package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/linguaforge/linguaforge/internal/llm"
)

var printer = message.NewPrinter(language.English)

// schemaCache holds compiled contracts keyed by schema name.
type schemaCache struct {
	m sync.Map // map[string]*jsonschema.Schema
}

func (c *schemaCache) get(schema *llm.Schema) (*jsonschema.Schema, error) {
	if cached, ok := c.m.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", schema.Name, err)
	}

	actual, _ := c.m.LoadOrStore(schema.Name, compiled)
	return actual.(*jsonschema.Schema), nil
}

// checkSchema validates obj against compiled and converts the first failure
// into a SchemaViolationError.
func checkSchema(compiled *jsonschema.Schema, obj []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(obj))
	if err != nil {
		return &MalformedOutputError{Snippet: snippet(string(obj)), Err: err}
	}

	err = compiled.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaViolationError{Reason: err.Error()}
	}

	leaf := firstLeaf(ve)
	loc := leaf.InstanceLocation
	if req, ok := leaf.ErrorKind.(*kind.Required); ok && len(req.Missing) > 0 {
		loc = append(slices.Clone(loc), slices.Min(req.Missing))
	}
	return &SchemaViolationError{
		Path:   pointer(loc),
		Reason: leaf.ErrorKind.LocalizedString(printer),
	}
}

// firstLeaf returns the most specific failure at the earliest instance
// location. Cause order is not stable, so leaves are ranked explicitly.
func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	var leaves []*jsonschema.ValidationError
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	return slices.MinFunc(leaves, func(a, b *jsonschema.ValidationError) int {
		if c := compareLocation(a.InstanceLocation, b.InstanceLocation); c != 0 {
			return c
		}
		return strings.Compare(
			strings.Join(a.ErrorKind.KeywordPath(), "/"),
			strings.Join(b.ErrorKind.KeywordPath(), "/"),
		)
	})
}

// compareLocation orders JSON pointers segment by segment, numerically for
// array indexes.
func compareLocation(a, b []string) int {
	for i := range min(len(a), len(b)) {
		if a[i] == b[i] {
			continue
		}
		ai, aErr := strconv.Atoi(a[i])
		bi, bErr := strconv.Atoi(b[i])
		if aErr == nil && bErr == nil {
			return ai - bi
		}
		return strings.Compare(a[i], b[i])
	}
	return len(a) - len(b)
}

func pointer(loc []string) string {
	if len(loc) == 0 {
		return ""
	}
	return "/" + strings.Join(loc, "/")
}
