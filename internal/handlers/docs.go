package handlers

import (
	"encoding/json"
	"net/http"
)

func jsonResponse(description string, schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, map[string]string{"$ref": "#/components/schemas/Error"})
}

func queryParam(name, description, typ string, required bool) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      map[string]string{"type": typ},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Wave Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	runRef := map[string]string{"$ref": "#/components/schemas/GridRun"}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Wave Platform API",
			"description": "Significant wave height and direction regridded into leaflet-velocity u/v grids",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Wave Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/data/wave-data.json": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Latest wave grid",
					"description": "Two-record u/v document (parameterNumber 2 then 3) for the velocity layer",
					"responses": map[string]interface{}{
						"200": jsonResponse("Velocity grid", map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"$ref": "#/components/schemas/VelocityRecord"},
						}),
						"404": errorResponse("No grid has been generated yet"),
					},
				},
			},
			"/api/runs": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List generation runs",
					"description": "Generation history, newest first",
					"parameters": []map[string]interface{}{
						queryParam("source", "Filter by sample source (file, openmeteo)", "string", false),
						queryParam("page", "Page number (default: 1)", "integer", false),
						queryParam("limit", "Runs per page (default: 20, max: 500)", "integer", false),
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Paginated runs", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"data":        map[string]interface{}{"type": "array", "items": runRef},
								"total":       map[string]string{"type": "integer"},
								"page":        map[string]string{"type": "integer"},
								"limit":       map[string]string{"type": "integer"},
								"total_pages": map[string]string{"type": "integer"},
							},
						}),
						"500": errorResponse("Internal server error"),
					},
				},
			},
			"/api/runs/latest": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Most recent generation run",
					"responses": map[string]interface{}{
						"200": jsonResponse("Run", runRef),
						"404": errorResponse("No runs recorded"),
					},
				},
			},
			"/api/runs/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Generation run by id",
					"parameters": []map[string]interface{}{
						{
							"name":     "id",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "integer"},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Run", runRef),
						"400": errorResponse("Invalid id"),
						"404": errorResponse("Run not found"),
					},
				},
			},
			"/api/wave/point": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Wave reading at a coordinate",
					"description": "Height and direction of the grid cell containing the point",
					"parameters": []map[string]interface{}{
						queryParam("lat", "Latitude in degrees", "number", true),
						queryParam("lon", "Longitude in degrees", "number", true),
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Reading", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"lat":           map[string]string{"type": "number"},
								"lon":           map[string]string{"type": "number"},
								"cell_lat":      map[string]string{"type": "number"},
								"cell_lon":      map[string]string{"type": "number"},
								"u":             map[string]string{"type": "number"},
								"v":             map[string]string{"type": "number"},
								"height_m":      map[string]string{"type": "number"},
								"direction_deg": map[string]string{"type": "number"},
								"land":          map[string]string{"type": "boolean"},
								"ref_time":      map[string]string{"type": "string", "format": "date-time"},
							},
						}),
						"400": errorResponse("Invalid or out-of-grid coordinate"),
						"404": errorResponse("No grid has been generated yet"),
					},
				},
			},
			"/api/wave/forecast": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Daily point forecast",
					"description": "Daily maximum wave height, dominant direction and maximum period at a coordinate",
					"parameters": []map[string]interface{}{
						queryParam("lat", "Latitude in degrees", "number", true),
						queryParam("lon", "Longitude in degrees", "number", true),
						queryParam("days", "Number of days, 1 to 16 (default 10)", "integer", false),
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Forecast", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"lat": map[string]string{"type": "number"},
								"lon": map[string]string{"type": "number"},
								"forecast": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"day":            map[string]string{"type": "integer"},
											"valid_time":     map[string]string{"type": "string", "format": "date-time"},
											"wave_height":    map[string]string{"type": "number"},
											"wave_direction": map[string]string{"type": "number"},
											"wave_period":    map[string]string{"type": "number"},
										},
									},
								},
							},
						}),
						"400": errorResponse("Invalid coordinate or day count"),
						"502": errorResponse("Forecast provider failed"),
						"503": errorResponse("Point forecasts are not configured"),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its database are reachable",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"status":    map[string]string{"type": "string"},
								"timestamp": map[string]string{"type": "string"},
							},
						}),
						"503": jsonResponse("Database unreachable", map[string]string{"type": "object"}),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
				"VelocityRecord": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"header": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"parameterCategory": map[string]string{"type": "integer"},
								"parameterNumber":   map[string]string{"type": "integer"},
								"dx":                map[string]string{"type": "number"},
								"dy":                map[string]string{"type": "number"},
								"nx":                map[string]string{"type": "integer"},
								"ny":                map[string]string{"type": "integer"},
								"la1":               map[string]string{"type": "number"},
								"la2":               map[string]string{"type": "number"},
								"lo1":               map[string]string{"type": "number"},
								"lo2":               map[string]string{"type": "number"},
								"refTime":           map[string]string{"type": "string", "format": "date-time"},
							},
						},
						"data": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"type": "number"},
						},
					},
				},
				"GridRun": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":            map[string]string{"type": "integer"},
						"cycle_time":    map[string]string{"type": "string", "format": "date-time"},
						"source":        map[string]string{"type": "string"},
						"nx":            map[string]string{"type": "integer"},
						"ny":            map[string]string{"type": "integer"},
						"dx":            map[string]string{"type": "number"},
						"dy":            map[string]string{"type": "number"},
						"sample_count":  map[string]string{"type": "integer"},
						"land_cells":    map[string]string{"type": "integer"},
						"ocean_cells":   map[string]string{"type": "integer"},
						"empty_cells":   map[string]string{"type": "integer"},
						"max_height_m":  map[string]string{"type": "number"},
						"mean_height_m": map[string]string{"type": "number"},
						"output_path":   map[string]string{"type": "string"},
						"duration_ms":   map[string]string{"type": "integer"},
						"created_at":    map[string]string{"type": "string", "format": "date-time"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
