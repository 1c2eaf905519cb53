// Package swagger holds the hand-maintained OpenAPI document served at
// /docs. Regenerate by editing docTemplate when the HTTP surface changes.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
  "schemes": {{ marshal .Schemes }},
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "host": "{{.Host}}",
  "basePath": "{{.BasePath}}",
  "paths": {
    "/auth/login": {
      "post": {
        "tags": ["auth"],
        "summary": "Authenticate and receive an access token",
        "parameters": [{"name": "credentials", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
        "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}, "403": {"description": "Account pending approval"}}
      }
    },
    "/modules": {
      "get": {
        "tags": ["modules"],
        "summary": "List modules assigned to the authenticated teacher",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      },
      "post": {
        "tags": ["modules"],
        "summary": "Create a module shell (admin)",
        "security": [{"BearerAuth": []}],
        "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}
      }
    },
    "/modules/{id}": {
      "get": {
        "tags": ["modules"],
        "summary": "Published module view, uncommitted uploads hidden",
        "security": [{"BearerAuth": []}],
        "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Module not found or not assigned"}}
      }
    },
    "/modules/{id}/edit": {
      "get": {
        "tags": ["modules"],
        "summary": "Full module document including temporary uploads",
        "security": [{"BearerAuth": []}],
        "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Module not found"}}
      }
    },
    "/modules/{id}/chapters": {
      "put": {
        "tags": ["chapters"],
        "summary": "Replace the chapter list and commit its uploads",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid payload"}}
      },
      "post": {
        "tags": ["chapters"],
        "summary": "Append a chapter",
        "security": [{"BearerAuth": []}],
        "responses": {"201": {"description": "Created"}}
      }
    },
    "/modules/{id}/chapters/{index}": {
      "delete": {
        "tags": ["chapters"],
        "summary": "Delete the chapter at a position; later chapters shift down",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Chapter not found"}}
      }
    },
    "/modules/{id}/chapters/{index}/files": {
      "post": {
        "tags": ["files"],
        "summary": "Upload files to a chapter; missing chapters are created as placeholders",
        "security": [{"BearerAuth": []}],
        "consumes": ["multipart/form-data"],
        "responses": {"201": {"description": "Created"}, "413": {"description": "File too large"}}
      }
    },
    "/modules/{id}/chapters/{index}/files/{fileIndex}": {
      "delete": {
        "tags": ["files"],
        "summary": "Remove a chapter attachment by position",
        "security": [{"BearerAuth": []}],
        "responses": {"204": {"description": "No Content"}}
      }
    },
    "/modules/{id}/syllabus": {
      "put": {
        "tags": ["syllabus"],
        "summary": "Update syllabus content and commit its uploads",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/modules/{id}/syllabus/files": {
      "post": {
        "tags": ["files"],
        "summary": "Upload files to the syllabus",
        "security": [{"BearerAuth": []}],
        "consumes": ["multipart/form-data"],
        "responses": {"201": {"description": "Created"}}
      }
    },
    "/modules/{id}/references": {
      "post": {
        "tags": ["references"],
        "summary": "Append a reference entry",
        "security": [{"BearerAuth": []}],
        "responses": {"201": {"description": "Created"}}
      }
    },
    "/modules/{id}/references/{index}": {
      "put": {
        "tags": ["references"],
        "summary": "Patch a reference and commit its uploads",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Reference not found"}}
      },
      "delete": {
        "tags": ["references"],
        "summary": "Delete a reference by position",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/modules/{id}/references/{index}/files": {
      "post": {
        "tags": ["files"],
        "summary": "Upload files to an existing reference",
        "security": [{"BearerAuth": []}],
        "consumes": ["multipart/form-data"],
        "responses": {"201": {"description": "Created"}, "404": {"description": "Reference not found"}}
      }
    },
    "/modules/{id}/files/sign": {
      "post": {
        "tags": ["files"],
        "summary": "Exchange a stored file path for a short-lived download token",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/files/download": {
      "get": {
        "tags": ["files"],
        "summary": "Download a locally stored attachment with a signed token",
        "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
        "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid or expired token"}}
      }
    }
  },
  "definitions": {
    "LoginRequest": {
      "type": "object",
      "required": ["email", "password"],
      "properties": {
        "email": {"type": "string"},
        "password": {"type": "string"}
      }
    }
  },
  "securityDefinitions": {
    "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Course API",
	Description:      "Course module content and attachment management service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
