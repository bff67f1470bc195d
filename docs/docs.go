// Package docs registers the Swagger description of the HTTP API with swag
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Staff login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for a new token pair",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.RefreshSessionRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Revoke the caller's access token and optional refresh token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": false, "schema": {"$ref": "#/definitions/dto.LogoutRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/catalog/filters": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Current filter catalog",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/catalog/filters": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Catalog"],
                "summary": "Replace the filter catalog at a version",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateFilterCatalogRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "Stale catalog version", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/catalog/filters/operations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Catalog"],
                "summary": "Apply one add/rename/remove operation at a version",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CatalogOperationRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "Stale catalog version", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/listings/search": {
            "get": {
                "tags": ["Listings"],
                "summary": "Search approved listings",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Comma separated brands", "name": "brands", "in": "query"},
                    {"type": "string", "description": "Applies only with exactly one brand", "name": "model", "in": "query"},
                    {"type": "integer", "name": "year", "in": "query"},
                    {"type": "integer", "name": "registration_year", "in": "query"},
                    {"type": "integer", "name": "price_min", "in": "query"},
                    {"type": "integer", "name": "price_max", "in": "query"},
                    {"type": "integer", "name": "km_min", "in": "query"},
                    {"type": "integer", "name": "km_max", "in": "query"},
                    {"type": "string", "name": "color", "in": "query"},
                    {"type": "string", "description": "Case-insensitive free text", "name": "q", "in": "query"},
                    {"type": "string", "enum": ["newest", "oldest", "price_asc", "price_desc", "km_asc"], "name": "sort", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/listings/{id}": {
            "get": {
                "tags": ["Listings"],
                "summary": "Read one listing",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "with_summary", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/listings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Listings"],
                "summary": "Back-office listing table",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Listings"],
                "summary": "Submit a listing for review",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.ListingInput"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Invalid listing", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/listings/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Listings"],
                "summary": "Edit a listing; it returns to pending",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.ListingInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Listings"],
                "summary": "Delete a listing and its inquiries",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Cascade failed", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/listings/{id}/transition": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Listings"],
                "summary": "Approve or reject a pending listing",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.TransitionListingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/inquiries": {
            "post": {
                "tags": ["Inquiries"],
                "summary": "Register interest in a listing",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CreateInquiryRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/inquiries": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Inquiries"],
                "summary": "Inquiries visible to the caller",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/inquiries/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Inquiries"],
                "summary": "Read one inquiry",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Inquiries"],
                "summary": "Delete an inquiry",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/inquiries/{id}/assign": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Inquiries"],
                "summary": "Route an inquiry to a sales agent",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.AssignInquiryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Unknown agent", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/inquiries/{id}/status": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Inquiries"],
                "summary": "Change inquiry status; closing needs remarks",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateInquiryStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/inquiries/{id}/notes": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Inquiries"],
                "summary": "Edit the assignee's private notes",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateInquiryNotesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/admin/reports/inquiries.xlsx": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reports"],
                "summary": "Inquiry spreadsheet",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/reports/listings.xlsx": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reports"],
                "summary": "Listing spreadsheet, one sheet per status",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {"$ref": "#/definitions/dto.ErrorDetail"}
            }
        },
        "dto.ErrorDetail": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {}
            }
        },
        "dto.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "dto.LogoutRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "dto.RefreshSessionRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "dto.UpdateFilterCatalogRequest": {
            "type": "object",
            "required": ["version"],
            "properties": {
                "version": {"type": "integer"},
                "brands": {"type": "array", "items": {"type": "string"}},
                "models": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}},
                "years": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "dto.CatalogOperationRequest": {
            "type": "object",
            "required": ["version", "op"],
            "properties": {
                "version": {"type": "integer"},
                "op": {"type": "string"},
                "brand": {"type": "string"},
                "model": {"type": "string"},
                "new_name": {"type": "string"},
                "year": {"type": "integer"}
            }
        },
        "dto.ListingInput": {
            "type": "object",
            "required": ["brand", "model", "year", "price", "fuel", "transmission", "ownership", "color", "engine_cc"],
            "properties": {
                "brand": {"type": "string"},
                "model": {"type": "string"},
                "year": {"type": "integer"},
                "registration_year": {"type": "integer"},
                "price": {"type": "integer"},
                "km_run": {"type": "integer"},
                "fuel": {"type": "string"},
                "transmission": {"type": "string"},
                "ownership": {"type": "integer"},
                "color": {"type": "string"},
                "engine_cc": {"type": "integer"},
                "additional_details": {"type": "string"},
                "images": {"type": "array", "items": {"type": "string"}},
                "badges": {"type": "array", "items": {"type": "string"}},
                "instagram_reel_url": {"type": "string"}
            }
        },
        "dto.TransitionListingRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["approved", "rejected"]}
            }
        },
        "dto.CreateInquiryRequest": {
            "type": "object",
            "required": ["car_id", "customer_name", "customer_phone"],
            "properties": {
                "car_id": {"type": "integer"},
                "customer_name": {"type": "string"},
                "customer_phone": {"type": "string"},
                "call_preference": {"type": "string"},
                "scheduled_call_time": {"type": "string"}
            }
        },
        "dto.AssignInquiryRequest": {
            "type": "object",
            "required": ["agent_id"],
            "properties": {
                "agent_id": {"type": "integer"}
            }
        },
        "dto.UpdateInquiryStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["new", "contacted", "closed"]},
                "remarks": {"type": "string"},
                "is_serious_customer": {"type": "boolean"}
            }
        },
        "dto.UpdateInquiryNotesRequest": {
            "type": "object",
            "properties": {
                "private_notes": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"https", "http"},
	Title:            "Kuruma no Ichiba API",
	Description:      "Used-vehicle marketplace back office: filter catalog, listings, inquiries and search.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
