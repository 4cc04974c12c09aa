// Package schemas embeds the JSON Schemas for the HTTP API payloads.
package schemas

import (
	"embed"
	"fmt"
)

//go:embed *.schema.json
var files embed.FS

// Schema file names.
const (
	PredictRequestFile  = "predict_request.schema.json"
	PredictResponseFile = "predict_response.schema.json"
)

// Load returns the contents of an embedded schema file.
func Load(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not found: %w", name, err)
	}
	return string(data), nil
}

// MustLoad is Load for schemas known at compile time.
func MustLoad(name string) string {
	s, err := Load(name)
	if err != nil {
		panic(err)
	}
	return s
}
