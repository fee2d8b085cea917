// Package docs registers the OpenAPI description of the viewer API with swag.
// Keep it in step with the @Router annotations in the engine package.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/drummonds/pdfreader"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/navigation": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Viewer"],
                "summary": "Get viewer status",
                "responses": {
                    "200": {"description": "Viewer status", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}}
                }
            }
        },
        "/document/open": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Viewer"],
                "summary": "Open a local PDF",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/engine.openRequest"}}
                ],
                "responses": {
                    "200": {"description": "Document opened", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}},
                    "400": {"description": "Missing path"},
                    "422": {"description": "Invalid or empty PDF"}
                }
            }
        },
        "/document/upload": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Viewer"],
                "summary": "Upload and open a PDF",
                "parameters": [
                    {"type": "file", "name": "file", "in": "formData", "required": true, "description": "PDF file"}
                ],
                "responses": {
                    "200": {"description": "Document opened", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}},
                    "400": {"description": "No file provided"},
                    "422": {"description": "Invalid or empty PDF"}
                }
            }
        },
        "/page/next": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Viewer"],
                "summary": "Next page",
                "responses": {
                    "200": {"description": "Viewer status", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}},
                    "409": {"description": "No document loaded"}
                }
            }
        },
        "/page/previous": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Viewer"],
                "summary": "Previous page",
                "responses": {
                    "200": {"description": "Viewer status", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}},
                    "409": {"description": "No document loaded"}
                }
            }
        },
        "/page/first": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Viewer"],
                "summary": "First page",
                "responses": {
                    "200": {"description": "Viewer status", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}},
                    "409": {"description": "No document loaded"}
                }
            }
        },
        "/page/last": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Viewer"],
                "summary": "Last page",
                "responses": {
                    "200": {"description": "Viewer status", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}},
                    "409": {"description": "No document loaded"}
                }
            }
        },
        "/page/goto": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Viewer"],
                "summary": "Go to page",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query", "required": true, "description": "Page number, starting at 1"}
                ],
                "responses": {
                    "200": {"description": "Viewer status", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}},
                    "400": {"description": "Page out of range"},
                    "409": {"description": "No document loaded"}
                }
            }
        },
        "/page/image": {
            "get": {
                "produces": ["image/png"],
                "tags": ["Viewer"],
                "summary": "Current page image",
                "parameters": [
                    {"type": "integer", "name": "width", "in": "query", "description": "Maximum width in pixels"}
                ],
                "responses": {
                    "200": {"description": "PNG image", "schema": {"type": "file"}},
                    "409": {"description": "No document loaded"},
                    "500": {"description": "Render failed"}
                }
            }
        },
        "/recent": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Recent"],
                "summary": "Recent documents",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query", "description": "Maximum number of documents"}
                ],
                "responses": {
                    "200": {"description": "Recent documents, newest first", "schema": {"type": "array", "items": {"$ref": "#/definitions/engine.recentDocumentView"}}},
                    "503": {"description": "Recent documents disabled"}
                }
            }
        },
        "/recent/{id}/open": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Recent"],
                "summary": "Reopen a recent document",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true, "description": "Recent document ULID"}
                ],
                "responses": {
                    "200": {"description": "Document opened", "schema": {"$ref": "#/definitions/engine.ViewerStatus"}},
                    "400": {"description": "Bad id"},
                    "404": {"description": "Unknown document"},
                    "422": {"description": "Document no longer readable"}
                }
            }
        },
        "/recent/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Recent"],
                "summary": "Forget a recent document",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true, "description": "Recent document ULID"}
                ],
                "responses": {
                    "200": {"description": "Deleted"},
                    "400": {"description": "Bad id"},
                    "404": {"description": "Unknown document"}
                }
            }
        },
        "/about": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Get application information",
                "responses": {
                    "200": {"description": "Application information", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "engine.openRequest": {
            "type": "object",
            "properties": {
                "path": {"type": "string"}
            }
        },
        "navigator.NavigationState": {
            "type": "object",
            "properties": {
                "canAdvance": {"type": "boolean"},
                "canRetreat": {"type": "boolean"},
                "loaded": {"type": "boolean"},
                "current": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "engine.ViewerStatus": {
            "type": "object",
            "properties": {
                "state": {"$ref": "#/definitions/navigator.NavigationState"},
                "label": {"type": "string"},
                "document": {"type": "string"},
                "status": {"type": "string"},
                "variant": {"type": "string"},
                "recentId": {"type": "string"}
            }
        },
        "engine.recentDocumentView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "title": {"type": "string"},
                "path": {"type": "string"},
                "pageCount": {"type": "integer"},
                "lastPage": {"type": "integer"},
                "openedAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "displayName": {"type": "string"},
                "current": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "pdfreader API",
	Description:      "Page by page PDF viewer API: open documents, navigate pages and fetch rendered pages",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
