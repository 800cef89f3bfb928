// Package docs registers the OpenAPI document of the warehouse API with swag
// so gin-swagger can serve it under /swagger/*any.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/stats/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["stats"],
                "summary": "Raw message table statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.TableStats"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/channels": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Per-channel summaries",
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/channels/{name}/activity": {
            "get": {
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Daily activity of a channel",
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"type": "integer", "default": 30, "name": "days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/search/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Keyword search over message text",
                "parameters": [
                    {"type": "string", "name": "query", "in": "query", "required": true},
                    {"type": "string", "name": "channel", "in": "query"},
                    {"type": "boolean", "name": "has_image", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/reports/top-products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Most mentioned products",
                "parameters": [{"type": "integer", "default": 10, "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/keywords": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Topic keyword counts",
                "parameters": [{"type": "integer", "default": 20, "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/visual-content": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Object detection statistics",
                "parameters": [{"type": "string", "name": "channel", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/lake/partitions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["lake"],
                "summary": "Lake partitions with their manifests",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/loads": {
            "get": {
                "produces": ["application/json"],
                "tags": ["loads"],
                "summary": "Recent load runs",
                "parameters": [{"type": "integer", "default": 20, "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["loads"],
                "summary": "Load lake files into the warehouse",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PostLoadRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replayed", "schema": {"$ref": "#/definitions/domain.LoadRun"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.LoadRun"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/loads/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["loads"],
                "summary": "One load run",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LoadRun"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handlers.PostLoadRequest": {
            "type": "object",
            "properties": {
                "path": {"type": "string"},
                "date": {"type": "string", "example": "2024-01-15"},
                "all": {"type": "boolean"},
                "batch_size": {"type": "integer"}
            }
        },
        "domain.TableStats": {
            "type": "object",
            "properties": {
                "total_messages": {"type": "integer"},
                "unique_channels": {"type": "integer"},
                "earliest_message": {"type": "string"},
                "latest_message": {"type": "string"},
                "messages_with_media": {"type": "integer"}
            }
        },
        "domain.LoadRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "idempotency_key": {"type": "string"},
                "path": {"type": "string"},
                "status": {"type": "string"},
                "sources": {"type": "integer"},
                "skipped_sources": {"type": "integer"},
                "received": {"type": "integer"},
                "invalid": {"type": "integer"},
                "duplicates": {"type": "integer"},
                "inserted": {"type": "integer"},
                "error": {"type": "string"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Telegram Warehouse API",
	Description:      "Query API over Telegram messages loaded from the data lake.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
