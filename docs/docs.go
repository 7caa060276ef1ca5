// Package docs registers the OpenAPI description of the market API, served
// by the swagger UI under /swagger/.
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
        "/datasets": {
            "post": {
                "description": "Load company and investor files and make them the current dataset. Omitted sources use the configured files. A failed load keeps the previous dataset.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["datasets"],
                "summary": "Load a dataset",
                "parameters": [
                    {"description": "Input files (local paths or http(s) URLs)", "name": "sources", "in": "body", "schema": {"$ref": "#/definitions/model.Sources"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/pipeline.DatasetSummary"}},
                    "400": {"description": "Invalid request payload", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "422": {"description": "Schema or data quality error", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/datasets/current": {
            "get": {
                "description": "Summary of the loaded dataset including rejected rows and load metrics",
                "produces": ["application/json"],
                "tags": ["datasets"],
                "summary": "Get current dataset",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pipeline.DatasetSummary"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/statistics": {
            "get": {
                "description": "Mean and median of total and last funding over all companies, truncated to whole USD",
                "produces": ["application/json"],
                "tags": ["statistics"],
                "summary": "Get overall statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.OverallStatistics"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/statistics/industries": {
            "get": {
                "description": "Funding statistics per industry group, optionally restricted to the named groups (case-insensitive)",
                "produces": ["application/json"],
                "tags": ["statistics"],
                "summary": "Get industry statistics",
                "parameters": [
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "Industry groups, repeated or comma separated", "name": "industry", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.IndustryStatistic"}}},
                    "400": {"description": "Unknown industry group", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/industries": {
            "get": {
                "description": "Distinct industry groups of the dataset in first-seen order",
                "produces": ["application/json"],
                "tags": ["statistics"],
                "summary": "List industries",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.IndustriesResponse"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/investors": {
            "get": {
                "description": "All investors with their scores, EU first then US, optionally filtered by region",
                "produces": ["application/json"],
                "tags": ["investors"],
                "summary": "List investors",
                "parameters": [
                    {"type": "string", "description": "EU or US", "name": "region", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.InvestorsResponse"}},
                    "400": {"description": "Invalid region", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/investors/top": {
            "get": {
                "description": "The k highest scoring investors, ties in file order",
                "produces": ["application/json"],
                "tags": ["investors"],
                "summary": "Get top investors",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Number of investors", "name": "k", "in": "query"},
                    {"type": "string", "description": "EU or US", "name": "region", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.InvestorsResponse"}},
                    "400": {"description": "Invalid k or region", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/model": {
            "get": {
                "description": "Cross-validation scores and feature importances of the funding predictor",
                "produces": ["application/json"],
                "tags": ["model"],
                "summary": "Get model report",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ModelReport"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/rankings": {
            "post": {
                "description": "Score companies by weighted investor strength, funding difference and market context and return the top N. An empty body uses the configured ranking.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rankings"],
                "summary": "Rank companies",
                "parameters": [
                    {"description": "N and weights", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/model.RankRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.RankingResponse"}},
                    "400": {"description": "Invalid weights", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/exports": {
            "get": {
                "description": "Export runs recorded in the history database, newest first",
                "produces": ["application/json"],
                "tags": ["exports"],
                "summary": "List exports",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.ExportRun"}}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            },
            "post": {
                "description": "Write the export bundle of the current dataset into a new directory under the export base. An empty body uses the configured export.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["exports"],
                "summary": "Create export",
                "parameters": [
                    {"description": "Export options", "name": "spec", "in": "body", "schema": {"$ref": "#/definitions/model.ExportSpec"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.ExportRun"}},
                    "400": {"description": "Invalid request payload", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "409": {"description": "No dataset loaded", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "500": {"description": "Some files failed", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "description": "One export run with the files it wrote",
                "produces": ["application/json"],
                "tags": ["exports"],
                "summary": "Get export",
                "parameters": [
                    {"type": "string", "description": "Export ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ExportRun"}},
                    "400": {"description": "Invalid export ID", "schema": {"$ref": "#/definitions/handler.APIError"}},
                    "404": {"description": "Export not found", "schema": {"$ref": "#/definitions/handler.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "handler.APIError": {
            "type": "object",
            "properties": {
                "details": {},
                "error_code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.IndustriesResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "industries": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handler.IndustryStatistic": {
            "type": "object",
            "properties": {
                "industry": {"type": "string"},
                "company_count": {"type": "integer"},
                "total_funding_mean": {"type": "integer"},
                "total_funding_median": {"type": "integer"},
                "last_funding_mean": {"type": "integer"},
                "last_funding_median": {"type": "integer"}
            }
        },
        "handler.InvestorsResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "region": {"type": "string"},
                "investors": {"type": "array", "items": {"$ref": "#/definitions/model.InvestorScore"}}
            }
        },
        "handler.RankingResponse": {
            "type": "object",
            "properties": {
                "dataset_id": {"type": "string"},
                "request": {"$ref": "#/definitions/model.RankRequest"},
                "count": {"type": "integer"},
                "rankings": {"type": "array", "items": {"$ref": "#/definitions/model.RankedCompany"}}
            }
        },
        "model.Sources": {
            "type": "object",
            "properties": {
                "companies": {"type": "string"},
                "eu_investors": {"type": "string"},
                "us_investors": {"type": "string"}
            }
        },
        "model.OverallStatistics": {
            "type": "object",
            "properties": {
                "mean_total_funding": {"type": "integer"},
                "median_total_funding": {"type": "integer"},
                "mean_last_funding": {"type": "integer"},
                "median_last_funding": {"type": "integer"}
            }
        },
        "model.InvestorScore": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "region": {"type": "string", "enum": ["EU", "US"]},
                "num_investments": {"type": "integer"},
                "num_exits": {"type": "integer"},
                "score": {"type": "integer"}
            }
        },
        "model.RankWeights": {
            "type": "object",
            "properties": {
                "investor_weight": {"type": "number", "minimum": 0},
                "funding_weight": {"type": "number", "minimum": 0},
                "market_weight": {"type": "number", "minimum": 0}
            }
        },
        "model.RankRequest": {
            "type": "object",
            "properties": {
                "n": {"type": "integer"},
                "weights": {"$ref": "#/definitions/model.RankWeights"}
            }
        },
        "model.EnrichedCompany": {
            "type": "object",
            "properties": {
                "organization_name": {"type": "string"},
                "organization_name_url": {"type": "string"},
                "full_description": {"type": "string"},
                "founded_date": {"type": "string"},
                "last_funding_date": {"type": "string"},
                "number_of_funding_rounds": {"type": "integer"},
                "founders": {"type": "array", "items": {"type": "string"}},
                "last_funding_type": {"type": "string"},
                "top_investors": {"type": "array", "items": {"type": "string"}},
                "industry_groups": {"type": "array", "items": {"type": "string"}},
                "total_funding_amount_usd": {"type": "number"},
                "last_funding_amount_usd": {"type": "number"},
                "number_of_employees": {"type": "string"},
                "expected_next_funding": {"type": "number"},
                "funding_difference": {"type": "number"}
            }
        },
        "model.RankedCompany": {
            "type": "object",
            "properties": {
                "rank": {"type": "integer"},
                "company": {"$ref": "#/definitions/model.EnrichedCompany"},
                "investor_score_sum": {"type": "integer"},
                "investor_score_normalized": {"type": "number"},
                "funding_difference_normalized": {"type": "number"},
                "market_context_score": {"type": "number"},
                "overall_score": {"type": "number"}
            }
        },
        "model.FeatureWeight": {
            "type": "object",
            "properties": {
                "feature": {"type": "string"},
                "weight": {"type": "number"}
            }
        },
        "model.ModelReport": {
            "type": "object",
            "properties": {
                "trees": {"type": "integer"},
                "seed": {"type": "integer"},
                "cross_val_scores": {"type": "array", "items": {"type": "number"}},
                "mean_cv_score": {"type": "number"},
                "feature_importance": {"type": "array", "items": {"$ref": "#/definitions/model.FeatureWeight"}}
            }
        },
        "model.ExportSpec": {
            "type": "object",
            "properties": {
                "db": {"type": "string"},
                "workbook": {"type": "boolean"},
                "charts": {"type": "boolean"},
                "model_report": {"type": "boolean"},
                "ranking": {"$ref": "#/definitions/model.RankRequest"}
            }
        },
        "model.ExportResult": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "path": {"type": "string"},
                "record_count": {"type": "integer"},
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "model.ExportRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "dataset_id": {"type": "string"},
                "dir": {"type": "string"},
                "status": {"type": "string"},
                "error": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "files": {"type": "array", "items": {"$ref": "#/definitions/model.ExportResult"}}
            }
        },
        "pipeline.RowRejection": {
            "type": "object",
            "properties": {
                "row": {"type": "integer"},
                "name": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "pipeline.DatasetSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "source": {"type": "string"},
                "funding_type": {"type": "string"},
                "loaded_at": {"type": "string"},
                "companies": {"type": "integer"},
                "investors": {"type": "integer"},
                "industries": {"type": "integer"},
                "rejected_rows": {"type": "array", "items": {"$ref": "#/definitions/pipeline.RowRejection"}},
                "metrics": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "vcmarket API",
	Description:      "Venture market analysis: investor scores, funding statistics, funding predictions and company rankings over one loaded dataset.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
