// Package swagger implements OpenAPI specification generation and serving
// for the field-plan allocator's HTTP gateway.
package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// @title Field Plan Allocator API
// @version 1.0.0
// @description Multi-field, multi-crop allocation and scheduling optimizer exposed as a request/response HTTP API.

// @contact.name Platform Team
// @contact.email platform@fieldplan.example

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /v1
// @schemes https http

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token issued to a registered client

func init() {
	swag.Register(swag.Name, &swag.Spec{
		InfoInstanceName: "swagger",
		SwaggerTemplate:  docTemplate,
	})
}

// RegisterSwagger mounts the Swagger UI on router at /swagger/.
func RegisterSwagger(router interface {
	Handle(pattern string, handler http.Handler)
}) {
	opts := httpSwagger.URL("/swagger/doc.json")
	router.Handle("/swagger/", httpSwagger.Handler(opts))
}

// @Summary Create a field plan
// @Description Run the allocation optimizer over a set of fields and crop specifications for a planning horizon
// @Tags plans
// @Accept json
// @Produce json
// @Param plan body dto.PlanRequest true "Plan request"
// @Success 200 {object} dto.PlanResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]string "Validation or orchestration failure"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Security BearerAuth
// @Router /plans [post]

// @Summary Adjust a plan allocation
// @Description Re-scope a single allocation's area within a previously computed plan
// @Tags plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param adjustment body dto.AdjustRequest true "Adjustment request"
// @Success 200 {object} dto.PlanResponse
// @Failure 404 {object} map[string]string "Plan not found"
// @Failure 422 {object} map[string]string "Adjustment violates a solution invariant"
// @Security BearerAuth
// @Router /plans/{id}/adjust [post]

// docTemplate holds the generated OpenAPI document. swag init overwrites
// this with the full spec derived from the annotations above; this
// minimal seed keeps the package buildable before the first generation.
const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"title": "Field Plan Allocator API",
		"version": "1.0.0"
	},
	"basePath": "/v1",
	"paths": {}
}`
