// Package docs registers the swagger document served at /swagger.
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
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/readyz": {
            "get": {
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/v1/chains/detect": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chains"],
                "summary": "Detect rolled chains for a user",
                "parameters": [
                    {
                        "description": "user and resync flag",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.detectRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/chains": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chains"],
                "summary": "List stored chains",
                "parameters": [
                    {"type": "string", "description": "user id", "name": "user_id", "in": "query", "required": true},
                    {"type": "string", "description": "underlying symbol", "name": "symbol", "in": "query"},
                    {"type": "string", "description": "active or closed", "name": "status", "in": "query"},
                    {"type": "boolean", "description": "only traced chains", "name": "enhanced", "in": "query"},
                    {"type": "string", "description": "started_at|ended_at|net_premium|roll_count|symbol", "name": "order_by", "in": "query"},
                    {"type": "boolean", "description": "ascending order", "name": "asc", "in": "query"},
                    {"type": "integer", "description": "limit", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/chains/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chains"],
                "summary": "Summarize stored chains",
                "parameters": [
                    {"type": "string", "description": "user id", "name": "user_id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/chains/{chain_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chains"],
                "summary": "Get one chain with its orders",
                "parameters": [
                    {"type": "string", "description": "chain id", "name": "chain_id", "in": "path", "required": true},
                    {"type": "string", "description": "user id", "name": "user_id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List detection runs",
                "parameters": [
                    {"type": "string", "description": "user id", "name": "user_id", "in": "query"},
                    {"type": "string", "description": "running|succeeded|failed", "name": "status", "in": "query"},
                    {"type": "string", "description": "started_at|chains_accepted|orders_seen", "name": "order_by", "in": "query"},
                    {"type": "boolean", "description": "ascending order", "name": "asc", "in": "query"},
                    {"type": "integer", "description": "limit", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/settings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "List stored settings",
                "parameters": [
                    {"type": "string", "description": "key prefix", "name": "prefix", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/settings/switches": {
            "get": {
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "List feature switches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/settings/switches/{key}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Toggle a feature switch",
                "parameters": [
                    {"type": "string", "description": "switch key, e.g. feature.chain_detection", "name": "key", "in": "path", "required": true},
                    {
                        "description": "new value",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.putSwitchRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.apiResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "data": {},
                "meta": {"type": "object", "additionalProperties": true}
            }
        },
        "handler.detectRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "full_resync": {"type": "boolean"}
            }
        },
        "handler.putSwitchRequest": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Option Chains API",
	Description:      "Rolled options chain detection, stored chains, and detection runs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
