package main

import (
	"xdial-backend/internal/httpapi"
	"xdial-backend/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic; handlers delegate to internal
// modules and every data read goes through the caller's scope.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireClientProfile())
	{
		v1.GET("/me", h.Me)

		// CATALOG routes. Reads are open to any authenticated caller;
		// deletes are capability-gated in the handler as well.
		cat := v1.Group("/catalog")
		{
			cat.GET("/statuses", h.ListStatuses)
			cat.GET("/transfer-settings", h.ListTransferSettings)
			cat.DELETE("/statuses/:id",
				rbac.RequireCapability(func(caps rbac.Capabilities) bool { return caps.CanDeleteCatalog }),
				h.DeleteStatus)
		}

		// ASSOCIATION routes. Row visibility is enforced by scope inside
		// the repositories; middleware only gates write capabilities.
		assoc := v1.Group("/associations")
		{
			assoc.GET("", h.ListAssociations)
			assoc.GET("/:id", h.GetAssociation)
			assoc.POST("", h.CreateAssociation) // staff or client self-serve; checked in service
			assoc.PATCH("/:id",
				rbac.RequireCapability(func(caps rbac.Capabilities) bool { return caps.CanEditConfig }),
				h.PatchAssociation)
			assoc.POST("/:id/approve",
				rbac.RequireCapability(func(caps rbac.Capabilities) bool { return caps.CanApprove }),
				h.ApproveAssociation)

			assoc.GET("/:id/status", h.CurrentStatus)
			assoc.GET("/:id/status/history", h.StatusHistory)
			assoc.PUT("/:id/status",
				rbac.RequireCapability(func(caps rbac.Capabilities) bool { return caps.CanEditConfig }),
				h.SetStatus)

			assoc.GET("/:id/calls", h.ListCalls)
			assoc.GET("/:id/calls/latest-stage", h.LatestStageCalls)
			assoc.GET("/:id/calls/export.csv", h.ExportCallsCSV)
			assoc.GET("/:id/category-counts", h.CategoryCounts)
			assoc.GET("/:id/transfer-stats", h.TransferStats)

			assoc.GET("/:id/dialer-settings", h.GetDialerSettings)
		}

		// RECORDINGS proxy. Clients and admins only, mirroring the
		// archive's own access policy.
		v1.GET("/recordings",
			rbac.RequireAnyRole(rbac.RoleAdmin, rbac.RoleClient),
			h.FetchRecordings)
	}
}
