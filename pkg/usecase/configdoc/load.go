package configdoc

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"gopkg.in/yaml.v3"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Resolved
	schemaErr  error
)

// documentSchema is generated from model.Config. Unknown keys are allowed at
// every level so they can be dropped instead of rejected.
func documentSchema() (*jsonschema.Resolved, error) {
	schemaOnce.Do(func() {
		s, err := jsonschema.For[model.Config](nil)
		if err != nil {
			schemaErr = goerr.Wrap(err, "failed to generate config schema")
			return
		}
		allowUnknownKeys(s)
		if schema, err = s.Resolve(nil); err != nil {
			schemaErr = goerr.Wrap(err, "failed to resolve config schema")
		}
	})
	return schema, schemaErr
}

func allowUnknownKeys(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	if s.Properties != nil {
		s.AdditionalProperties = nil
	}
	for _, p := range s.Properties {
		allowUnknownKeys(p)
	}
	allowUnknownKeys(s.Items)
}

// LoadFromFile reads a configuration document in JSON, or YAML when the
// extension is .yaml or .yml, validates its shape and decodes it
func LoadFromFile(path string) (*model.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "config file not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(model.ErrStorage, "failed to read config file",
			goerr.V("path", path), goerr.V("error", err.Error()))
	}

	doc, err := parseDocument(path, raw)
	if err != nil {
		return nil, err
	}

	resolved, err := documentSchema()
	if err != nil {
		return nil, err
	}
	if err := resolved.Validate(doc); err != nil {
		return nil, goerr.Wrap(model.ErrValidation, "config file does not match document schema",
			goerr.V("path", path), goerr.V("error", err.Error()))
	}

	return model.ConfigFromMap(doc)
}

// parseDocument decodes the file into generic JSON values. YAML is re-encoded
// through JSON so both formats validate identically.
func parseDocument(path string, raw []byte) (map[string]any, error) {
	var generic any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return nil, goerr.Wrap(model.ErrValidation, "config file is not valid YAML",
				goerr.V("path", path), goerr.V("error", err.Error()))
		}
		jsonRaw, err := json.Marshal(generic)
		if err != nil {
			return nil, goerr.Wrap(model.ErrValidation, "config file has non JSON compatible values",
				goerr.V("path", path), goerr.V("error", err.Error()))
		}
		raw = jsonRaw
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, goerr.Wrap(model.ErrValidation, "config file is not a JSON object",
			goerr.V("path", path), goerr.V("error", err.Error()))
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
