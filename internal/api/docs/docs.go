// Package docs holds the OpenAPI document served under /swagger/. It
// follows the swag init layout for the annotations in internal/api.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "apilog"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "https://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/admin/trace/add": {
            "get": {
                "description": "Register a component for tracing, optionally with a trace level. Names must be non-empty UTF-8.",
                "produces": [
                    "text/html"
                ],
                "tags": [
                    "Trace"
                ],
                "summary": "Add trace component or level",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Component name",
                        "name": "component",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Trace level",
                        "name": "level",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Outcome and answering instance",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Missing or invalid component or level",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "Permission denied",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/admin/trace/clear": {
            "get": {
                "description": "Remove every traced component. The matching mode is kept.",
                "produces": [
                    "text/html"
                ],
                "tags": [
                    "Trace"
                ],
                "summary": "Clear trace components",
                "responses": {
                    "200": {
                        "description": "Outcome and answering instance",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "Permission denied",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/admin/trace/exact": {
            "get": {
                "description": "Switch between exact and threshold level matching",
                "produces": [
                    "text/html"
                ],
                "tags": [
                    "Trace"
                ],
                "summary": "Set exact level matching",
                "parameters": [
                    {
                        "enum": [
                            "true",
                            "false"
                        ],
                        "type": "string",
                        "description": "true or false, case insensitive",
                        "name": "value",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Outcome and answering instance",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Value is not true or false",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "Permission denied",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/admin/trace/list": {
            "get": {
                "description": "List traced components and their levels as JSON embedded in the response",
                "produces": [
                    "text/html"
                ],
                "tags": [
                    "Trace"
                ],
                "summary": "List trace components",
                "responses": {
                    "200": {
                        "description": "Components and answering instance",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "Permission denied",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/admin/trace/remove": {
            "get": {
                "description": "Remove a component, or a single level of it",
                "produces": [
                    "text/html"
                ],
                "tags": [
                    "Trace"
                ],
                "summary": "Remove trace component or level",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Component name",
                        "name": "component",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Trace level",
                        "name": "level",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Outcome and answering instance",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Missing or invalid component or level",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "Permission denied",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/logout": {
            "post": {
                "description": "Delete the caller's session and expire the session cookie",
                "tags": [
                    "Session"
                ],
                "summary": "Log out",
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "500": {
                        "description": "Session store failure",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/whoami": {
            "get": {
                "description": "Describe the user attached to the caller's session",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Session"
                ],
                "summary": "Current user",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.WhoAmIResponse"
                        }
                    },
                    "403": {
                        "description": "No logged in session",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "hashCode": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "statusCode": {
                    "type": "integer"
                },
                "userMessage": {
                    "type": "string"
                }
            }
        },
        "api.WhoAmIResponse": {
            "type": "object",
            "properties": {
                "perms": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "superAdmin": {
                    "type": "boolean"
                },
                "userId": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "apilog API",
	Description:      "Application API with classified error responses and runtime trace administration.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
