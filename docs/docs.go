// Package docs serves the OpenAPI document of the sync API through swag.
package docs

import "github.com/swaggo/swag/v2"

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
		"/health": {
			"get": {
				"tags": [
					"system"
				],
				"summary": "Liveness probe",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/ready": {
			"get": {
				"tags": [
					"system"
				],
				"summary": "Readiness probe",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/webhooks/woocommerce/{storeId}": {
			"post": {
				"tags": [
					"webhooks"
				],
				"summary": "Receive a WooCommerce webhook",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"413": {
						"description": "Request Entity Too Large",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Store ID",
						"name": "storeId",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Event topic",
						"name": "X-WC-Webhook-Topic",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Base64 HMAC-SHA256 of the body",
						"name": "X-WC-Webhook-Signature",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Delivery ID",
						"name": "X-WC-Webhook-Delivery-ID",
						"in": "header"
					}
				]
			}
		},
		"/api/v1/stores": {
			"post": {
				"tags": [
					"stores"
				],
				"summary": "Connect a WooCommerce store",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Store connection",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/integration.CreateStoreRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/stores/{id}": {
			"get": {
				"tags": [
					"stores"
				],
				"summary": "Get a store",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Store ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"put": {
				"tags": [
					"stores"
				],
				"summary": "Update a store's name or sync settings",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Store ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Changes",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/integration.UpdateStoreRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"tags": [
					"stores"
				],
				"summary": "Deactivate a store",
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Store ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/stores/{id}/credentials": {
			"put": {
				"tags": [
					"stores"
				],
				"summary": "Replace a store's API credentials",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Store ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "New credentials",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/integration.RotateCredentialsRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/stores/{id}/sync": {
			"post": {
				"tags": [
					"stores"
				],
				"summary": "Sync a store now",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"422": {
						"description": "Unprocessable Entity",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"502": {
						"description": "Bad Gateway",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Store ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/products/{id}/push-stock": {
			"post": {
				"tags": [
					"products"
				],
				"summary": "Push local stock to the store",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"202": {
						"description": "Accepted",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"502": {
						"description": "Bad Gateway",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Product ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "boolean",
						"description": "Run detached and answer 202",
						"name": "async",
						"in": "query"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/settings": {
			"get": {
				"tags": [
					"settings"
				],
				"summary": "Get tenant settings",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"put": {
				"tags": [
					"settings"
				],
				"summary": "Update tenant settings",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Changes",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/integration.UpdateSettingsRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/sync/status": {
			"get": {
				"tags": [
					"sync"
				],
				"summary": "Scheduler status for the caller's stores",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		}
	},
	"definitions": {
		"dto.Response": {
			"type": "object",
			"properties": {
				"success": {
					"type": "boolean"
				},
				"data": {},
				"error": {
					"$ref": "#/definitions/dto.ErrorInfo"
				}
			}
		},
		"dto.ErrorInfo": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				},
				"request_id": {
					"type": "string"
				},
				"details": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/dto.ValidationDetail"
					}
				}
			}
		},
		"dto.ValidationDetail": {
			"type": "object",
			"properties": {
				"field": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"integration.CreateStoreRequest": {
			"type": "object",
			"required": [
				"base_url",
				"consumer_key",
				"consumer_secret",
				"name"
			],
			"properties": {
				"name": {
					"type": "string",
					"maxLength": 200,
					"minLength": 1
				},
				"base_url": {
					"type": "string"
				},
				"consumer_key": {
					"type": "string"
				},
				"consumer_secret": {
					"type": "string"
				},
				"webhook_secret": {
					"type": "string"
				},
				"auto_sync": {
					"type": "boolean"
				},
				"sync_interval_minutes": {
					"type": "integer",
					"minimum": 1,
					"maximum": 1440
				},
				"sync_orders": {
					"type": "boolean"
				},
				"sync_products": {
					"type": "boolean"
				}
			}
		},
		"integration.UpdateStoreRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"maxLength": 200,
					"minLength": 1
				},
				"auto_sync": {
					"type": "boolean"
				},
				"sync_interval_minutes": {
					"type": "integer",
					"minimum": 1,
					"maximum": 1440
				},
				"sync_orders": {
					"type": "boolean"
				},
				"sync_products": {
					"type": "boolean"
				}
			}
		},
		"integration.RotateCredentialsRequest": {
			"type": "object",
			"required": [
				"consumer_key",
				"consumer_secret"
			],
			"properties": {
				"consumer_key": {
					"type": "string"
				},
				"consumer_secret": {
					"type": "string"
				},
				"webhook_secret": {
					"type": "string"
				}
			}
		},
		"integration.UpdateSettingsRequest": {
			"type": "object",
			"properties": {
				"status_overrides": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				},
				"fallback_status": {
					"type": "string"
				},
				"low_stock_threshold": {
					"type": "integer",
					"minimum": 0
				},
				"push_stock_enabled": {
					"type": "boolean"
				},
				"default_currency": {
					"type": "string"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Bearer token authentication. Format: \"Bearer {token}\"",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "WooCommerce Sync API",
	Description:      "Imports WooCommerce orders and products per tenant and pushes stock back",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
