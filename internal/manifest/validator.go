package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/manifest.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// ValidationResult contains the outcome of a schema validation.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue is a single schema violation, with the failing field
// named so rejection messages can point at it.
type ValidationIssue struct {
	Path    string // instance location, e.g. "/dependencies/0/id"
	Message string
	Keyword string
}

func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// getSchema compiles the embedded JSON schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("manifest.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate validates raw manifest bytes against the manifest schema.
// The error return is for I/O or schema compilation failures only;
// violations come back in the ValidationResult.
func Validate(data []byte) (*ValidationResult, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	// Round-trip through JSON so the validator sees json.Number values.
	raw = normalizeYAML(raw)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}
	return &ValidationResult{Issues: collectIssues(validationErr)}, nil
}

// collectIssues walks the error tree and returns leaf-level issues.
func collectIssues(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	walkIssues(ve, &issues)
	if len(issues) == 0 {
		issues = append(issues, ValidationIssue{Message: ve.Error()})
	}
	return issues
}

func walkIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		if len(ve.InstanceLocation) == 0 {
			path = ""
		}

		keyword := ""
		msg := ""
		if ve.ErrorKind != nil {
			if kwPath := ve.ErrorKind.KeywordPath(); len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
			msg = ve.ErrorKind.LocalizedString(printer)
		}
		if keyword == "$ref" || keyword == "" {
			return
		}

		*issues = append(*issues, ValidationIssue{Path: path, Message: msg, Keyword: keyword})
		return
	}
	for _, cause := range ve.Causes {
		walkIssues(cause, issues)
	}
}

// Check applies the structural rules the schema cannot express. It returns
// one message per violation, each naming the offending field.
func Check(m *Manifest) []string {
	var problems []string

	if !ValidID(m.ID) {
		problems = append(problems, fmt.Sprintf("field 'id' is not a valid mod ID: %q", m.ID))
	}
	if _, err := m.SemVersion(); err != nil {
		problems = append(problems, fmt.Sprintf("field 'version' is not a semantic version: %q", m.Version))
	}
	if m.EntryModule != "" && m.ContentPackFor != "" {
		problems = append(problems, "fields 'entry_module' and 'content_pack_for' are mutually exclusive")
	}
	if m.EntryModule == "" && m.ContentPackFor == "" {
		problems = append(problems, "one of 'entry_module' or 'content_pack_for' must be set")
	}
	if m.MinHostVersion != "" {
		if _, err := parseVersion(m.MinHostVersion); err != nil {
			problems = append(problems, fmt.Sprintf("field 'min_host_version' is not a semantic version: %q", m.MinHostVersion))
		}
	}
	for i, dep := range m.Dependencies {
		if dep.MinVersion == "" {
			continue
		}
		if _, err := parseVersion(dep.MinVersion); err != nil {
			problems = append(problems, fmt.Sprintf("field 'dependencies[%d].min_version' is not a semantic version: %q", i, dep.MinVersion))
		}
	}

	return problems
}

// normalizeYAML recursively converts YAML-decoded values to JSON-compatible
// types so the schema validator handles numbers consistently.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, v := range val {
			m[k] = normalizeYAML(v)
		}
		return m
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, v := range val {
			m[fmt.Sprintf("%v", k)] = normalizeYAML(v)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(val))
		for i, item := range val {
			s[i] = normalizeYAML(item)
		}
		return s
	default:
		return v
	}
}
