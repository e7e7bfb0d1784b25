package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/agentcrew/internal/crew"
	"github.com/hyperifyio/agentcrew/internal/extract"
	"github.com/hyperifyio/agentcrew/internal/fetch"
)

// PageExtractor is the Page Extractor as seen by the /extract route.
type PageExtractor interface {
	Extract(ctx context.Context, url string) (extract.Result, error)
}

// PDFRenderer renders a titled text answer as a PDF document.
type PDFRenderer interface {
	Render(w io.Writer, title, body string) error
}

type agentsRequest struct {
	Task string `json:"task" binding:"required"`
}

type websiteRequest struct {
	WebsiteURL string `json:"website_url" binding:"required"`
}

// CrewHandler serves the research crew.
type CrewHandler struct {
	NewCrew CrewFactory
	timeout time.Duration
}

// HandleAgents runs the crew for the posted task and answers {"data": raw}.
func (h *CrewHandler) HandleAgents(c *gin.Context) {
	var req agentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, ok := kickoff(c, h.NewCrew, req.Task, h.timeout)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out.Raw})
}

// SEOHandler serves the SEO crew and direct page extraction.
type SEOHandler struct {
	NewCrew CrewFactory
	Pages   PageExtractor
	// Renderer is required for ?format=pdf; without it the query is rejected.
	Renderer PDFRenderer
	timeout  time.Duration
}

// HandleSEO runs the SEO crew for website_url. The answer is decoded as JSON
// when possible. With ?format=pdf the answer is returned as a PDF file.
func (h *SEOHandler) HandleSEO(c *gin.Context) {
	var req websiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wantPDF := strings.EqualFold(c.Query("format"), "pdf")
	if wantPDF && h.Renderer == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pdf output not available"})
		return
	}
	out, ok := kickoff(c, h.NewCrew, req.WebsiteURL, h.timeout)
	if !ok {
		return
	}
	data := crew.DecodeOutput(out.Raw)
	if !wantPDF {
		c.JSON(http.StatusOK, gin.H{"data": data})
		return
	}

	body, ok := data.(string)
	if !ok {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			body = out.Raw
		} else {
			body = string(b)
		}
	}
	var buf bytes.Buffer
	if err := h.Renderer.Render(&buf, "SEO analysis: "+req.WebsiteURL, body); err != nil {
		log.Error().Err(err).Str("url", req.WebsiteURL).Msg("render pdf")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="seo-analysis.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// HandleExtract runs the Page Extractor directly and returns its Result.
func (h *SEOHandler) HandleExtract(c *gin.Context) {
	var req websiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.Pages == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "extractor not configured"})
		return
	}
	ctx, cancel := withTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	res, err := h.Pages.Extract(ctx, req.WebsiteURL)
	if err != nil {
		var fe *fetch.FetchError
		switch {
		case errors.As(err, &fe):
			log.Warn().Err(err).Str("url", fe.URL).Int("status", fe.StatusCode).Msg("extract fetch failed")
			resp := gin.H{"error": err.Error(), "url": fe.URL}
			if fe.StatusCode != 0 {
				resp["status"] = fe.StatusCode
			}
			c.JSON(http.StatusBadGateway, resp)
		default:
			var pe *extract.ParseError
			if errors.As(err, &pe) {
				log.Warn().Err(err).Str("url", pe.URL).Msg("extract parse failed")
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "url": pe.URL})
				return
			}
			log.Error().Err(err).Str("url", req.WebsiteURL).Msg("extract failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

// kickoff builds and runs a crew, writing the error response itself when it
// fails.
func kickoff(c *gin.Context, factory CrewFactory, input string, timeout time.Duration) (crew.CrewOutput, bool) {
	if factory == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "crew not configured"})
		return crew.CrewOutput{}, false
	}
	k, err := factory(input)
	if err != nil {
		log.Error().Err(err).Msg("build crew")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return crew.CrewOutput{}, false
	}
	ctx, cancel := withTimeout(c.Request.Context(), timeout)
	defer cancel()
	out, err := k.Kickoff(ctx)
	if err != nil {
		log.Error().Err(err).Msg("crew kickoff")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return crew.CrewOutput{}, false
	}
	return out, true
}
