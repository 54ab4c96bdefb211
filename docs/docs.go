// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/controller/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["system"], "summary": "Liveness check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/healthz": {"get": {"tags": ["system"], "summary": "Readiness check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/auth/sign-up": {"post": {"tags": ["auth"], "summary": "Sign up", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/auth/sign-in": {"post": {"tags": ["auth"], "summary": "Sign in", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/api/v1/zone/state": {"get": {"security": [{"BearerAuth": []}], "tags": ["zone"], "summary": "Get zone state", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/api/v1/override": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["override"], "summary": "Get override", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["override"], "summary": "Apply override", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.OverrideRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.OverrideResponse"}}, "400": {"description": "Bad Request"}, "429": {"description": "Too Many Requests"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["override"], "summary": "Cancel override", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/logs": {"get": {"security": [{"BearerAuth": []}], "tags": ["logs"], "summary": "List logs", "produces": ["application/json"],
            "parameters": [{"type": "string", "name": "from", "in": "query"}, {"type": "string", "name": "to", "in": "query"}, {"type": "string", "name": "type", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}],
            "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/audit/verify": {"get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Verify audit journal", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}}
    },
    "definitions": {
        "handlers.OverrideRequest": {"type": "object", "properties": {
            "mode": {"type": "string", "example": "HEAT_ON"},
            "duration_minutes": {"type": "integer", "example": 30},
            "source": {"type": "string", "example": "api"}}},
        "handlers.OverrideResponse": {"type": "object", "properties": {
            "status": {"type": "string", "example": "override_applied"},
            "override_mode": {"type": "string", "example": "HEAT_ON"},
            "override_until": {"type": "string"},
            "audit_hash": {"type": "string"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Zone Controller API",
	Description:      "Single-zone HVAC decision and safety-interlock controller.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
