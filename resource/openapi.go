// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/swaggest/openapi-go/openapi3"
	"gopkg.in/yaml.v3"
)

type openApiHandler struct {
	spec        *openapi3.Spec
	contentType string
	marshal     func(*openapi3.Spec) ([]byte, error)
}

func (h openApiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, err := h.marshal(h.spec)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", h.contentType)
	_, _ = io.Copy(w, bytes.NewReader(b))
}

// OpenApiJsonHandler returns an [http.Handler] which will respond with the OpenAPI schema as JSON.
func OpenApiJsonHandler(spec *openapi3.Spec) http.Handler {
	return openApiHandler{
		spec:        spec,
		contentType: "application/json",
		marshal: func(s *openapi3.Spec) ([]byte, error) {
			return json.Marshal(s)
		},
	}
}

// OpenApiYamlHandler returns an [http.Handler] which will respond with the OpenAPI schema as YAML.
func OpenApiYamlHandler(spec *openapi3.Spec) http.Handler {
	return openApiHandler{
		spec:        spec,
		contentType: "application/yaml",
		marshal:     marshalYaml,
	}
}

// marshalYaml goes through JSON first so the field names and omitempty
// rules of the generated OpenAPI types are honoured. JSON is valid YAML,
// so decoding it into a yaml.Node keeps the key order.
func marshalYaml(spec *openapi3.Spec) ([]byte, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	err = yaml.Unmarshal(b, &node)
	if err != nil {
		return nil, err
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
