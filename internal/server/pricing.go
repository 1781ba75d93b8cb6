package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
)

type recommendationsRequest struct {
	Customer customerdomain.Customer `json:"customer"`
	Products []catalogdomain.Product `json:"products"`
}

func (s *Server) GetRecommendations(c *gin.Context) {
	var req recommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.Recommend(c.Request.Context(), req.Customer, req.Products)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) OptimizePrice(c *gin.Context) {
	var req pricingdomain.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.SKU = strings.TrimSpace(req.SKU)

	resp, err := s.pricingSvc.Optimize(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordOptimization(string(req.TargetMetric))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type elasticityRequest struct {
	SKU        string    `json:"sku"`
	PriceRange []float64 `json:"price_range"`
}

func (s *Server) CalculateElasticity(c *gin.Context) {
	var req elasticityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.SKU) == "" {
		AbortWithError(c, catalogdomain.ErrInvalidSKU)
		return
	}

	resp, err := s.pricingSvc.ElasticityCurve(c.Request.Context(), strings.TrimSpace(req.SKU), req.PriceRange)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AnalyzeMargins(c *gin.Context) {
	var req recommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.AnalyzeMargins(c.Request.Context(), req.Customer, req.Products)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomerSegments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": customerdomain.Segments()})
}
