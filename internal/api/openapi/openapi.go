// Package openapi describes the HTTP API of the backup server.
package openapi

import "encoding/json"

const Version = "3.0.3"

type Document struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
}

type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type PathItem struct {
	Get *Operation `json:"get,omitempty"`
}

type Operation struct {
	Summary     string              `json:"summary"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId"`
	Tags        []string            `json:"tags,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

type Schema struct {
	Ref        string             `json:"$ref,omitempty"`
	Type       string             `json:"type,omitempty"`
	Format     string             `json:"format,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
}

type Components struct {
	Schemas map[string]*Schema `json:"schemas"`
}

func errorResponse(description string) Response {
	return Response{
		Description: description,
		Content: map[string]MediaType{
			"application/json": {Schema: &Schema{Ref: "#/components/schemas/HttpErrMessage"}},
		},
	}
}

// Build returns the OpenAPI document of the server.
func Build(version string) Document {
	return Document{
		OpenAPI: Version,
		Info: Info{
			Title:       "backupctl",
			Description: "Backups server API with realm metrics",
			Version:     version,
		},
		Paths: map[string]PathItem{
			"/metrics": {Get: &Operation{
				Summary:     "Prometheus Metrics",
				Description: "Prometheus metrics endpoint (health check). Realm statistics are collected on every request.",
				OperationID: "metrics",
				Tags:        []string{"metrics"},
				Responses: map[string]Response{
					"200": {
						Description: "Prometheus metrics in text exposition format",
						Content:     map[string]MediaType{"text/plain": {Schema: &Schema{Type: "string"}}},
					},
					"500": errorResponse("Realms configuration could not be loaded"),
				},
			}},
			"/openapi.json": {Get: &Operation{
				Summary:     "Open API",
				Description: "openapi.json endpoint",
				OperationID: "openapi",
				Tags:        []string{"meta"},
				Responses: map[string]Response{
					"200": {
						Description: "returns open api of the service",
						Content:     map[string]MediaType{"application/json": {Schema: &Schema{Type: "object"}}},
					},
				},
			}},
			"/health": {Get: &Operation{
				Summary:     "Health",
				OperationID: "health",
				Tags:        []string{"meta"},
				Responses: map[string]Response{
					"200": {
						Description: "server is running",
						Content: map[string]MediaType{"application/json": {Schema: &Schema{
							Type:       "object",
							Properties: map[string]*Schema{"status": {Type: "string"}},
						}}},
					},
				},
			}},
		},
		Components: Components{
			Schemas: map[string]*Schema{
				"HttpErrMessage": {
					Type:     "object",
					Required: []string{"message"},
					Properties: map[string]*Schema{
						"code":    {Type: "integer", Format: "int32"},
						"error":   {Type: "string"},
						"message": {Type: "string"},
					},
				},
			},
		},
	}
}

// JSON renders the document as indented JSON.
func JSON(version string) ([]byte, error) {
	return json.MarshalIndent(Build(version), "", "  ")
}
