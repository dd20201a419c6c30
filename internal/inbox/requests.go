package inbox

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
)

// Extensions lists the request file extensions picked up from the inbox.
var Extensions = []string{".json", ".yaml", ".yml"}

// IsRequestFile reports whether name has a request file extension and is
// not hidden.
func IsRequestFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

type requestList struct {
	Requests []content.RequestSpec `yaml:"requests"`
}

// ParseRequests decodes request specs from JSON or YAML. It accepts a single
// request mapping, a list of requests, or a mapping with a "requests" list.
func ParseRequests(data []byte) ([]content.RequestSpec, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, derrors.ValidationError("request file is empty").Build()
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, derrors.ValidationError("malformed request file").WithCause(err).Build()
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil, derrors.ValidationError("request file has no document").Build()
	}
	root := node.Content[0]

	var specs []content.RequestSpec
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&specs); err != nil {
			return nil, derrors.ValidationError("decode request list").WithCause(err).Build()
		}
	case yaml.MappingNode:
		if hasKey(root, "requests") {
			var list requestList
			if err := root.Decode(&list); err != nil {
				return nil, derrors.ValidationError("decode request list").WithCause(err).Build()
			}
			specs = list.Requests
			break
		}
		var spec content.RequestSpec
		if err := root.Decode(&spec); err != nil {
			return nil, derrors.ValidationError("decode request").WithCause(err).Build()
		}
		specs = []content.RequestSpec{spec}
	default:
		return nil, derrors.ValidationError("request file must hold a mapping or a list").Build()
	}
	if len(specs) == 0 {
		return nil, derrors.ValidationError("request file lists no requests").Build()
	}
	return specs, nil
}

// LoadRequests reads and parses a request file.
func LoadRequests(path string) ([]content.RequestSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, derrors.NotFoundError("request file not found").WithContext("path", path).Build()
		}
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "read request file").
			WithContext("path", path).
			Build()
	}
	specs, err := ParseRequests(data)
	if err != nil {
		if ce, ok := derrors.AsClassified(err); ok {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return specs, nil
}

// Requests converts specs into normalized requests.
func Requests(specs []content.RequestSpec) []content.Request {
	out := make([]content.Request, len(specs))
	for i, s := range specs {
		out[i] = s.Request()
	}
	return out
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}
