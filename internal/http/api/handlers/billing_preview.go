package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
)

// BillingPreviewHandler exposes the cost -> margin -> credits pipeline for display
// and comparison surfaces. Nothing here persists or deducts.
type BillingPreviewHandler struct {
	engine *billing.Engine
}

// NewBillingPreviewHandler constructs a billing preview handler.
func NewBillingPreviewHandler(engine *billing.Engine) *BillingPreviewHandler {
	return &BillingPreviewHandler{engine: engine}
}

// previewRequest captures a hypothetical usage event.
type previewRequest struct {
	Provider     string `json:"provider"`      // Provider identifier.
	Model        string `json:"model"`         // Model identifier.
	Tier         string `json:"tier"`          // Subscription tier, optional.
	InputTokens  int64  `json:"input_tokens"`  // Input token count.
	OutputTokens int64  `json:"output_tokens"` // Output token count.
	CachedTokens int64  `json:"cached_tokens"` // Cached-input token count.
	Mode         string `json:"mode"`          // Conversion mode; empty uses default.
}

// previewResponse is the full pipeline output.
type previewResponse struct {
	InputCost     float64 `json:"input_cost"`      // USD, regular input.
	CachedCost    float64 `json:"cached_cost"`     // USD, cached input.
	OutputCost    float64 `json:"output_cost"`     // USD, output.
	TotalCost     float64 `json:"total_cost"`      // USD, total vendor cost.
	PricingSource string  `json:"pricing_source"`  // "current" or "historical".
	Multiplier    float64 `json:"multiplier"`      // Applied margin multiplier.
	MarginScope   string  `json:"margin_scope"`    // Cascade level that matched.
	MarginPercent float64 `json:"margin_percent"`  // Derived target margin.
	InputCredits  int64   `json:"input_credits"`   // Input-side credits.
	OutputCredits int64   `json:"output_credits"`  // Output-side credits.
	TotalCredits  int64   `json:"total_credits"`   // Billable total.
	Mode          string  `json:"conversion_mode"` // Mode the conversion ran in.
}

// Preview runs the pipeline against current rates without persisting anything.
func (h *BillingPreviewHandler) Preview(c *gin.Context) {
	var body previewRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Provider) == "" || strings.TrimSpace(body.Model) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider and model are required"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	usage := billing.UsageEvent{
		Provider:     body.Provider,
		Model:        body.Model,
		Tier:         body.Tier,
		InputTokens:  body.InputTokens,
		OutputTokens: body.OutputTokens,
		CachedTokens: body.CachedTokens,
		RequestedAt:  now,
	}

	cost, errCost := h.engine.CalculateCost(ctx, usage)
	if errCost != nil {
		respondEngineError(c, errCost)
		return
	}
	margin, errMargin := h.engine.ResolveMargin(ctx, body.Tier, body.Provider, body.Model, now)
	if errMargin != nil {
		respondEngineError(c, errMargin)
		return
	}
	credits, errConvert := h.engine.ConvertToCredits(cost, margin, billing.ConversionMode(body.Mode))
	if errConvert != nil {
		respondEngineError(c, errConvert)
		return
	}

	c.JSON(http.StatusOK, previewResponse{
		InputCost:     cost.InputCost,
		CachedCost:    cost.CachedCost,
		OutputCost:    cost.OutputCost,
		TotalCost:     cost.TotalCost,
		PricingSource: cost.Source,
		Multiplier:    margin.Multiplier,
		MarginScope:   string(margin.Scope),
		MarginPercent: margin.TargetMarginPercent,
		InputCredits:  credits.InputCredits,
		OutputCredits: credits.OutputCredits,
		TotalCredits:  credits.TotalCredits(),
		Mode:          string(credits.Mode),
	})
}
