package v1

import (
	"github.com/gin-gonic/gin"
)

// InvoiceRouteHandler defines the routes every invoice kind exposes.
type InvoiceRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	NextNumber(c *gin.Context)
	History(c *gin.Context)
}

// RegisterInvoiceRoutes registers the routes of one invoice kind. There is
// no DELETE: invoices are never removed.
func RegisterInvoiceRoutes(group *gin.RouterGroup, handler InvoiceRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/next-number", handler.NextNumber)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.GET("/:id/history", handler.History)
}
