package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	basketdomain "github.com/smallbiznis/quotient/internal/basket/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
)

const defaultOriginCountry = "US"

func (s *Server) GenerateInvoice(c *gin.Context) {
	var basket basketdomain.Basket
	if err := c.ShouldBindJSON(&basket); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	includePromotions := true
	if raw := strings.TrimSpace(c.Query("include_promotions")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		includePromotions = parsed
	}

	resp, err := s.invoiceSvc.Generate(c.Request.Context(), basket, includePromotions)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordInvoice()
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CalculateTariffs(c *gin.Context) {
	var basket basketdomain.Basket
	if err := c.ShouldBindJSON(&basket); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	origin := strings.TrimSpace(c.Query("origin_country"))
	if origin == "" {
		origin = defaultOriginCountry
	}

	resp, err := s.invoiceSvc.PreviewTariffs(c.Request.Context(), basket, origin)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type applyPromotionsRequest struct {
	Basket         basketdomain.Basket `json:"basket"`
	PromotionCodes []string            `json:"promotion_codes,omitempty"`
}

func (s *Server) ApplyPromotions(c *gin.Context) {
	var req applyPromotionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.PreviewPromotions(c.Request.Context(), req.Basket, req.PromotionCodes)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceTemplate(c *gin.Context) {
	segment, err := customerdomain.ParseSegment(strings.TrimSpace(c.Param("segment")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.Template(c.Request.Context(), segment)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
