// Package docs holds the OpenAPI description served at /swagger.
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
        "/documents": {
            "post": {
                "description": "Register a document with its initial field tree",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Create a document",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"description": "Document", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateDocumentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "409": {"description": "Document already exists", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Get a document",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Document ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            },
            "patch": {
                "description": "Apply field changes in order. The whole patch is rejected if the result fails validation.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Apply a patch",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Acting user", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"description": "Changes", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.PatchDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "503": {"description": "Persistence failure", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/documents/{id}/extraction": {
            "post": {
                "description": "Apply a field tree produced by an external extractor as one patch with source ocr",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Commit extracted fields",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"description": "Extracted fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ExtractionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/documents/{id}/audit": {
            "get": {
                "description": "Audit trail of a document, newest first",
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List audit records",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 0, "description": "Offset", "name": "offset", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Limit", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/limits/recalculate": {
            "post": {
                "description": "Recompute the 12 monthly snapshots of the tenant's year and return the dashboard",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["limits"],
                "summary": "Recalculate limits",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"description": "Year and optional document scope", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.RecalculateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Invalid year", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "500": {"description": "Limit configuration missing", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "503": {"description": "Persistence failure", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/limits/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["limits"],
                "summary": "Get the compliance dashboard",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"type": "integer", "description": "Fiscal year", "name": "year", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "404": {"description": "No snapshots for the year", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/limits/export": {
            "get": {
                "description": "Stream the monthly snapshots as an XLSX workbook or CSV file",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "text/csv"],
                "tags": ["limits"],
                "summary": "Download the dashboard",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"type": "integer", "description": "Fiscal year", "name": "year", "in": "query", "required": true},
                    {"type": "string", "default": "xlsx", "description": "xlsx or csv", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "No snapshots for the year", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            },
            "post": {
                "description": "Upload the export and return a presigned download link",
                "produces": ["application/json"],
                "tags": ["limits"],
                "summary": "Publish the dashboard to object storage",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"type": "integer", "description": "Fiscal year", "name": "year", "in": "query", "required": true},
                    {"type": "string", "default": "xlsx", "description": "xlsx or csv", "name": "format", "in": "query"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "501": {"description": "Object storage not configured", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/storage/presign-upload": {
            "post": {
                "description": "Return a short-lived URL to PUT a document file directly to object storage",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["storage"],
                "summary": "Presign an upload",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header", "required": true},
                    {"description": "File details", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.PresignUploadRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "501": {"description": "Object storage not configured", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        }
    },
    "definitions": {
        "handler.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "violations": {"type": "array", "items": {"$ref": "#/definitions/domain.Violation"}}
            }
        },
        "domain.Violation": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "InvalidAmount"},
                "path": {"type": "string", "example": "totals.gross_amount"},
                "message": {"type": "string"}
            }
        },
        "domain.PatchChange": {
            "type": "object",
            "required": ["path"],
            "properties": {
                "path": {"type": "string", "example": "totals.gross_amount"},
                "value": {},
                "source": {"type": "string", "example": "user"}
            }
        },
        "handler.CreateDocumentRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "inv-2024-0042"},
                "fields": {"type": "object"}
            }
        },
        "handler.PatchDocumentRequest": {
            "type": "object",
            "required": ["changes"],
            "properties": {
                "changes": {"type": "array", "items": {"$ref": "#/definitions/domain.PatchChange"}}
            }
        },
        "handler.ExtractionRequest": {
            "type": "object",
            "required": ["fields"],
            "properties": {
                "fields": {"type": "object"}
            }
        },
        "handler.RecalculateRequest": {
            "type": "object",
            "required": ["year"],
            "properties": {
                "year": {"type": "integer", "example": 2024},
                "doc_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handler.PresignUploadRequest": {
            "type": "object",
            "required": ["file_name", "content_type"],
            "properties": {
                "file_name": {"type": "string", "example": "invoice.pdf"},
                "content_type": {"type": "string", "example": "application/pdf"}
            }
        },
        "handler.PagMeta": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "offset": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "handler.Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "data": {},
                "meta": {"$ref": "#/definitions/handler.PagMeta"}
            }
        },
        "handler.ErrorResponseBody": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "error": {"$ref": "#/definitions/handler.APIError"}
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
	Title:            "LimitGuard API",
	Description:      "Document mutation and annual limit compliance service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
