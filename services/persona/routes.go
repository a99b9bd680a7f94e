// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the persona routes with the router.
//
// Description:
//
//	Registers the public chat surface and the operator admin surface on
//	the given Gin router group. The group should already carry any
//	middleware (recovery, tracing) the deployment needs.
//
// Inputs:
//
//	rg - Gin router group (typically the engine root group)
//	handlers - The handlers instance
//
// Public Endpoints:
//
//	POST /chat - Session-scoped resolution
//	POST /retrieve - Sessionless resolution
//	GET  /health - Corpus counts by source type
//	GET  /meta - Service tag and guardrail patterns
//
// Admin Endpoints:
//
//	GET  /admin/api/examples_text - Export pairs as a Q:/A: document
//	POST /admin/api/examples_text - Replace pairs from an edited document
//	GET  /admin/api/voiceprint - Read the active voiceprint
//	PUT  /admin/api/voiceprint - Write voiceprint (replace or append)
//	POST /admin/api/index_text - Append an operator note to the corpus
//	GET  /admin/api/rules - Read the rule document
//	PUT  /admin/api/rules - Replace the rule document
//	GET  /admin/api/review_count - Corrections log status counts
//	POST /admin/reload - Force reload of corpus and pair stores
//	POST /admin/tune/feedback - Log a correction, merge style rules
//	GET  /admin/tune/rules - Read the style-rule list
//	PUT  /admin/tune/rules - Replace the style-rule list
//
// Example:
//
//	svc := persona.NewService(cfg, store, adapter)
//	handlers := persona.NewHandlers(svc)
//	persona.RegisterRoutes(router.Group("/"), handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.POST("/chat", handlers.HandleChat)
	rg.POST("/retrieve", handlers.HandleRetrieve)
	rg.GET("/health", handlers.HandleHealth)
	rg.GET("/meta", handlers.HandleMeta)

	admin := rg.Group("/admin")
	{
		api := admin.Group("/api")
		{
			api.GET("/examples_text", handlers.HandleExamplesTextGet)
			api.POST("/examples_text", handlers.HandleExamplesTextPost)
			api.GET("/voiceprint", handlers.HandleVoiceprintGet)
			api.PUT("/voiceprint", handlers.HandleVoiceprintPut)
			api.POST("/index_text", handlers.HandleIndexText)
			api.GET("/rules", handlers.HandleRulesGet)
			api.PUT("/rules", handlers.HandleRulesPut)
			api.GET("/review_count", handlers.HandleReviewCount)
		}

		admin.POST("/reload", handlers.HandleReload)

		tune := admin.Group("/tune")
		{
			tune.POST("/feedback", handlers.HandleTuneFeedback)
			tune.GET("/rules", handlers.HandleTuneRulesGet)
			tune.PUT("/rules", handlers.HandleTuneRulesPut)
		}
	}
}
