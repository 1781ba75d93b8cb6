package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	basketdomain "github.com/smallbiznis/quotient/internal/basket/domain"
	shippingdomain "github.com/smallbiznis/quotient/internal/shipping/domain"
)

func (s *Server) EstimateShipping(c *gin.Context) {
	var basket basketdomain.Basket
	if err := c.ShouldBindJSON(&basket); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	zone, err := shippingdomain.ParseZone(strings.TrimSpace(c.Query("zone")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.shippingSvc.Estimate(c.Request.Context(), basket, zone)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordShippingEstimate(string(resp.Zone))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type weightInferenceRequest struct {
	SKUs []string `json:"skus"`
}

func (s *Server) InferWeights(c *gin.Context) {
	var req weightInferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.shippingSvc.InferWeights(c.Request.Context(), req.SKUs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) OptimizeSourcing(c *gin.Context) {
	var basket basketdomain.Basket
	if err := c.ShouldBindJSON(&basket); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.shippingSvc.OptimizeSourcing(c.Request.Context(), basket)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCarriers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.shippingSvc.Carriers(c.Request.Context())})
}
