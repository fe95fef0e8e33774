package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appinference "github.com/turtacn/nlp-inference-service/internal/application/inference"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// InferenceHandler serves the model endpoints and the request log.
type InferenceHandler struct {
	svc    appinference.Service
	logger logging.Logger
}

// NewInferenceHandler creates a new InferenceHandler.
func NewInferenceHandler(svc appinference.Service, logger logging.Logger) *InferenceHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &InferenceHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the protected endpoints on rg.
func (h *InferenceHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/sentiment", h.Sentiment)
	rg.POST("/translate", h.Translate)
	rg.GET("/history", h.History)
}

// Sentiment handles POST /sentiment.
func (h *InferenceHandler) Sentiment(c *gin.Context) {
	req, ok := bindText(c)
	if !ok {
		return
	}
	resp, err := h.svc.AnalyzeSentiment(c.Request.Context(), req.Text)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Translate handles POST /translate.
func (h *InferenceHandler) Translate(c *gin.Context) {
	req, ok := bindText(c)
	if !ok {
		return
	}
	resp, err := h.svc.Translate(c.Request.Context(), req.Text)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History handles GET /history.  An unreachable store is reported in the
// body with status 200.
func (h *InferenceHandler) History(c *gin.Context) {
	recs, err := h.svc.History(c.Request.Context())
	if err != nil {
		h.logger.WithContext(c.Request.Context()).WithError(err).Warn("history read failed")
		c.JSON(http.StatusOK, inference.HistoryError{Error: "history store unavailable"})
		return
	}
	if recs == nil {
		recs = []inference.LogRecord{}
	}
	c.JSON(http.StatusOK, recs)
}

//Personal.AI order the ending
