package achievement

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListHandler 返回完整的成就目录，按阈值升序
func ListHandler(catalog *Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"achievements": catalog.All()})
	}
}
