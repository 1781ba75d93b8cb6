package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
)

func (s *Server) ListProducts(c *gin.Context) {
	var req catalogdomain.ListRequest
	if err := c.ShouldBindQuery(&req.Pagination); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.ListProducts(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Products, "page_info": resp.PageInfo})
}

func (s *Server) SearchProducts(c *gin.Context) {
	var req struct {
		Query    string `form:"q"`
		Category string `form:"category"`
		Limit    int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.SearchProducts(c.Request.Context(), catalogdomain.SearchRequest{
		Query:    strings.TrimSpace(req.Query),
		Category: strings.TrimSpace(req.Category),
		Limit:    req.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.catalogSvc.ListCategories()})
}

func (s *Server) GetProductBySKU(c *gin.Context) {
	resp, err := s.catalogSvc.GetProduct(c.Request.Context(), strings.TrimSpace(c.Param("sku")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
