package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

func (s *Server) dashboard(c *gin.Context) {
	view, err := s.loyalty.Dashboard(c.Request.Context())
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) profile(c *gin.Context) {
	view, err := s.loyalty.Profile(c.Request.Context())
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) history(c *gin.Context) {
	feed, err := s.loyalty.History(c.Request.Context(), c.Query("tab"))
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, feed)
}

func (s *Server) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.loyalty.Catalog(c.Request.Context(), c.Query("category"), c.Query("search")))
}

func (s *Server) reward(c *gin.Context) {
	item, err := s.loyalty.Reward(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) redeem(c *gin.Context) {
	res, err := s.loyalty.Redeem(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) products(c *gin.Context) {
	products, err := s.loyalty.ProductCatalog(c.Request.Context(), c.Query("family"), c.Query("search"))
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) conversions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	requests, err := s.loyalty.ConversionRequests(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversion_requests": requests})
}

func (s *Server) conversionLookups(c *gin.Context) {
	lookups, err := s.loyalty.ConversionLookups(c.Request.Context())
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, lookups)
}

type conversionRequest struct {
	OrderID  string `json:"orderId"`
	DealerID string `json:"dealerId"`
}

func (s *Server) submitConversion(c *gin.Context) {
	var req conversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	res, err := s.loyalty.SubmitConversion(c.Request.Context(), req.OrderID, req.DealerID)
	if err != nil {
		s.respondError(c, err, req)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) previewOrder(c *gin.Context) {
	var draft models.OrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.badRequest(c, err)
		return
	}
	summary, err := s.loyalty.PreviewOrder(c.Request.Context(), draft)
	if err != nil {
		s.respondError(c, err, draft)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) createOrder(c *gin.Context) {
	var draft models.OrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.badRequest(c, err)
		return
	}
	res, err := s.loyalty.CreateOrder(c.Request.Context(), draft)
	if err != nil {
		s.respondError(c, err, draft)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) submissions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		s.respondError(c, apperr.ValidationErr("Invalid limit.", map[string]string{"limit": "Use a positive number."}), nil)
		return
	}
	subs, err := s.loyalty.Submissions(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (s *Server) transferPoints(c *gin.Context) {
	var req struct {
		Points int `json:"points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	res, err := s.loyalty.TransferPoints(c.Request.Context(), req.Points)
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) scan(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	res, err := s.loyalty.Scan(c.Request.Context(), req.Code)
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

// coverage answers ok=false rather than an error for missing or
// non-positive dimensions.
func (s *Server) coverage(c *gin.Context) {
	length, _ := strconv.ParseFloat(c.Query("length"), 64)
	width, _ := strconv.ParseFloat(c.Query("width"), 64)
	est, ok, err := s.loyalty.Coverage(length, width, c.Query("product"))
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "estimate": est})
}

func (s *Server) coverageProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": s.loyalty.CoverageProducts()})
}

func (s *Server) survey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questions": s.loyalty.SurveyQuestions()})
}

func (s *Server) submitSurvey(c *gin.Context) {
	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	res, err := s.loyalty.SubmitSurvey(c.Request.Context(), req.Answers)
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) referral(c *gin.Context) {
	ref, err := s.loyalty.Referral(c.Request.Context(), "")
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (s *Server) shareReferral(c *gin.Context) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.Phone == "" {
		s.respondError(c, apperr.ValidationErr("A phone number is required.", map[string]string{"phone": "Enter a phone number."}), nil)
		return
	}
	ref, err := s.loyalty.Referral(c.Request.Context(), req.Phone)
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, ref)
}
