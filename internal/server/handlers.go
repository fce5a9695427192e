package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"yashubustudio/surveyx/nco"
)

// SearchRequest is the body of POST /nco/search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// SearchHit is one ranked occupation.
type SearchHit struct {
	OccupationTitle string  `json:"occupation_title"`
	NCOCode         string  `json:"nco_code"`
	FinalScore      float32 `json:"final_score"`
	SemanticScore   float32 `json:"semantic_score"`
	LexicalScore    float32 `json:"lexical_score"`
}

// SearchResponse is the body returned by POST /nco/search.
type SearchResponse struct {
	Query   string      `json:"query"`
	TopK    int         `json:"top_k"`
	Results []SearchHit `json:"results"`
}

// MatchRequest is the body of POST /nco/match.
type MatchRequest struct {
	Rows []nco.TitleRow `json:"rows"`
}

// MatchResponse is the body returned by POST /nco/match.
type MatchResponse struct {
	Threshold float64           `json:"threshold"`
	Matched   int               `json:"matched"`
	Results   []nco.MatchResult `json:"results"`
}

// HealthHandler reports index and survey status.
func (api *API) HealthHandler(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"model":  api.svc.ModelID(),
		"builds": api.svc.Builds(),
	}
	if idx, err := api.svc.Index(); err == nil {
		status["lookup_entries"] = idx.Len()
		status["lookup_source"] = api.svc.Source()
	} else {
		status["lookup_entries"] = 0
	}
	if ds, err := api.currentSurvey(); err == nil {
		status["survey_rows"] = ds.Len()
	} else {
		status["survey_error"] = err.Error()
	}
	c.JSON(http.StatusOK, status)
}

// SearchHandler ranks occupations for a free-text job title.
func (api *API) SearchHandler(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	maxTopK := api.svc.Config().Search.MaxTopK
	if req.TopK < 0 || req.TopK > maxTopK {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest,
			fmt.Sprintf("top_k must be between 1 and %d", maxTopK),
			ErrorDetail{Field: "top_k", Message: "out of range"})
		return
	}
	results, err := api.svc.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		if !sendKnownError(c, err) {
			api.logger.Error("search failed", "query", req.Query, "error", err)
			SendSearchError(c, err)
		}
		return
	}
	resp := SearchResponse{Query: req.Query, TopK: len(results), Results: make([]SearchHit, len(results))}
	for i, r := range results {
		resp.Results[i] = SearchHit{
			OccupationTitle: r.Entry.Label,
			NCOCode:         r.Entry.Code,
			FinalScore:      r.FinalScore,
			SemanticScore:   r.SemanticScore,
			LexicalScore:    r.LexicalScore,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// MatchHandler assigns codes to a batch of titles.
func (api *API) MatchHandler(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if len(req.Rows) == 0 {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "rows must not be empty",
			ErrorDetail{Field: "rows", Message: "at least one row is required"})
		return
	}
	results, err := api.svc.MatchAll(c.Request.Context(), req.Rows)
	if err != nil {
		SendDomainError(c, "match", err)
		return
	}
	matched := 0
	for _, r := range results {
		if r.Matched {
			matched++
		}
	}
	c.JSON(http.StatusOK, MatchResponse{
		Threshold: api.svc.Config().Match.Threshold,
		Matched:   matched,
		Results:   results,
	})
}

// SurveyColumnsHandler lists the survey columns and a preview of the first rows.
func (api *API) SurveyColumnsHandler(c *gin.Context) {
	ds, err := api.currentSurvey()
	if err != nil {
		SendDomainError(c, "survey load", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"columns": ds.Columns,
		"count":   ds.Len(),
		"preview": ds.Head(10).Rows,
	})
}

// SurveySearchHandler filters survey rows by substring.
func (api *API) SurveySearchHandler(c *gin.Context) {
	ds, err := api.currentSurvey()
	if err != nil {
		SendDomainError(c, "survey load", err)
		return
	}
	column := c.Query("column")
	value := c.Query("value")
	if strings.TrimSpace(column) == "" {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "column is required",
			ErrorDetail{Field: "column", Message: "missing"})
		return
	}
	out, err := ds.FilterContains(column, value)
	if err != nil {
		SendDomainError(c, "survey search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"columns": out.Columns,
		"rows":    out.Rows,
		"count":   out.Len(),
	})
}

// SurveyExportHandler downloads the full survey dataset as CSV.
func (api *API) SurveyExportHandler(c *gin.Context) {
	ds, err := api.currentSurvey()
	if err != nil {
		SendDomainError(c, "survey load", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="survey_data.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := ds.WriteCSV(c.Writer); err != nil {
		api.logger.Error("survey export failed", "error", err)
	}
}

// SurveyReloadHandler reloads the survey from its descriptor or data file.
func (api *API) SurveyReloadHandler(c *gin.Context) {
	if api.surveyPath == "" {
		SendError(c, http.StatusNotFound, ErrorCodeDataNotFound, "no survey source configured")
		return
	}
	if err := api.ReloadSurvey(); err != nil {
		SendDomainError(c, "survey reload", err)
		return
	}
	ds, _ := api.currentSurvey()
	c.JSON(http.StatusOK, gin.H{"count": ds.Len()})
}
