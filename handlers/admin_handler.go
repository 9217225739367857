package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"quizhall/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	fixtures *services.FixtureService
	scores   *services.ScoreService
	export   *services.ExportService
	dispatch *services.DispatchService
}

func NewAdminHandler(fixtures *services.FixtureService, scores *services.ScoreService, export *services.ExportService, dispatch *services.DispatchService) *AdminHandler {
	return &AdminHandler{
		fixtures: fixtures,
		scores:   scores,
		export:   export,
		dispatch: dispatch,
	}
}

// LoadFixture replaces the active game with the posted question set.
func (h *AdminHandler) LoadFixture(c *gin.Context) {
	var fixture services.Fixture
	if err := c.ShouldBindJSON(&fixture); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.fixtures.LoadFixture(c.Request.Context(), fixture)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, game)
}

// LoadDefaultFixture loads the built-in demo set.
func (h *AdminHandler) LoadDefaultFixture(c *gin.Context) {
	game, err := h.fixtures.LoadFixture(c.Request.Context(), services.DefaultFixture())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, game)
}

func (h *AdminHandler) GetScore(c *gin.Context) {
	scores, err := h.scores.LiveScore(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, scores)
}

func (h *AdminHandler) GetResults(c *gin.Context) {
	results, err := h.scores.FinalResults(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

// ShowResults recomputes the final table and pushes it to the hall screen.
func (h *AdminHandler) ShowResults(c *gin.Context) {
	results, err := h.scores.FinalResults(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.dispatch.ShowResults(renderResults(results))
	c.JSON(http.StatusOK, gin.H{"teams": len(results)})
}

func renderResults(results []services.TeamResult) string {
	var b strings.Builder
	b.WriteString("Итоги игры\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s: %.1f (%s)\n", i+1, r.Team, r.Total, r.Level)
	}
	return b.String()
}

// ExportCSV streams every committed answer as a CSV attachment.
func (h *AdminHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="answers.csv"`)
	if err := h.export.WriteCSV(c.Request.Context(), c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
}

type broadcastRequest struct {
	Text string `json:"text" binding:"required"`
}

// Broadcast puts an arbitrary slide on the hall screen.
func (h *AdminHandler) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.dispatch.ShowSlide(req.Text)
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

type partnerQuestionRequest struct {
	Text         string   `json:"text" binding:"required"`
	Options      []string `json:"options" binding:"required,min=2"`
	CorrectIndex int      `json:"correct_index"`
	SlideText    string   `json:"slide_text,omitempty"`
	Start        bool     `json:"start"`
}

// PartnerQuestion appends a sponsor question to the running round and
// optionally dispatches it right away, with an optional intro slide first.
func (h *AdminHandler) PartnerQuestion(c *gin.Context) {
	var req partnerQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.fixtures.AppendPartnerQuestion(c.Request.Context(), req.Text, req.Options, req.CorrectIndex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SlideText != "" {
		h.dispatch.ShowSlide(req.SlideText)
	}
	if req.Start {
		if _, err := h.dispatch.StartQuestion(c.Request.Context(), question.ID); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusCreated, question)
}
