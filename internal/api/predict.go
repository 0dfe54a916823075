package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cyberlaw-advisor/backend/internal/ai"
	"cyberlaw-advisor/backend/internal/classifier"
	"cyberlaw-advisor/backend/internal/report"
	"cyberlaw-advisor/backend/internal/store"
	"cyberlaw-advisor/backend/internal/util"
)

const (
	downloadPath   = "/download_report"
	reportFilename = "cyber_law_report.pdf"
)

var (
	errNoQuery       = errors.New("No query provided")
	errNoMatch       = errors.New("No matching section found for the query")
	errReportMissing = errors.New("Report not found")
)

func (s *Server) handlePredict(c *gin.Context) {
	timer := util.StartTimer()
	user := currentUser(c)

	query, err := readQuery(c)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(query) == "" {
		s.renderError(c, http.StatusBadRequest, errNoQuery)
		return
	}

	prediction, err := s.model.Predict(query)
	if err != nil {
		if errors.Is(err, classifier.ErrNoMatch) {
			s.renderError(c, http.StatusNotFound, errNoMatch)
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	procedure := s.procedure(c.Request.Context(), prediction.Section)

	row := &store.Prediction{
		UserID:     user.ID,
		Query:      query,
		Section:    prediction.Section,
		Offense:    prediction.Record.Offense,
		Punishment: prediction.Record.Punishment,
		CaseType:   prediction.Record.CaseType,
		Procedure:  procedure,
		Score:      prediction.Score,
		DurationMs: timer.ElapsedMs(),
	}
	if err := s.db.SavePrediction(row); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	dto := PredictionFromModel(*row)
	s.notifier.Broadcast(user.ID, PredictionEvent{Type: "prediction", Prediction: &dto})

	logrus.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"section":     prediction.Section,
		"score":       prediction.Score,
		"duration_ms": row.DurationMs,
	}).Info("prediction served")

	c.JSON(http.StatusOK, PredictResponse{
		Message: "Prediction successful",
		Data:    dto.Fields,
		PDFURL:  downloadPath,
	})
}

// readQuery accepts the form encoded body the page sends and the JSON body API callers send.
func readQuery(c *gin.Context) (string, error) {
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		var req PredictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", errors.New("invalid JSON body")
		}
		return req.Query, nil
	}
	return c.PostForm("query"), nil
}

func (s *Server) procedure(ctx context.Context, section string) string {
	ctx, cancel := context.WithTimeout(ctx, s.procedureTimeout)
	defer cancel()

	text, err := s.writer.Procedure(ctx, section)
	if err != nil {
		logrus.WithError(err).WithField("section", section).Warn("generate procedure")
		return "Error retrieving procedure: " + err.Error()
	}
	if strings.TrimSpace(text) == "" {
		return ai.NoProcedure
	}
	return text
}

func (s *Server) handleDownloadReport(c *gin.Context) {
	user := currentUser(c)
	latest, err := s.db.LatestPrediction(user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, errReportMissing)
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	err = report.Render(&buf, report.Report{
		Section:    latest.Section,
		Offense:    latest.Offense,
		Punishment: latest.Punishment,
		CaseType:   latest.CaseType,
		Procedure:  latest.Procedure,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+reportFilename+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (s *Server) handleHistory(c *gin.Context) {
	user := currentUser(c)
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}

	rows, total, err := s.db.ListPredictions(user.ID, page*pageSize, pageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]PredictionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, PredictionFromModel(row))
	}
	c.JSON(http.StatusOK, HistoryResponse{Items: items, Total: total})
}
