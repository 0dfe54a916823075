package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const (
	// PredictPath is the prediction endpoint the form posts to.
	PredictPath = "/predict"
	// DownloadPath is where the download button navigates.
	DownloadPath = "/download_report"
	// FailureMessage is shown when no usable payload came back.
	FailureMessage = "Something went wrong while contacting the server. Please try again."

	maxResponseBytes = 1 << 20
)

// ErrEmptyPayload marks a response that decoded but carried neither error nor data.
var ErrEmptyPayload = errors.New("response carries neither error nor data")

var resultTemplate = template.Must(template.New("result").Parse(
	`<p><strong>Section:</strong> {{.Section}}</p>
<p><strong>Offense:</strong> {{.Offense}}</p>
<p><strong>Punishment:</strong> {{.Punishment}}</p>
<p><strong>Case Type:</strong> {{.CaseType}}</p>
<p><strong>Procedure:</strong> {{.Procedure}}</p>
`))

// Handler submits queries to the prediction endpoint and renders the outcome
// into the injected elements.
type Handler struct {
	baseURL  string
	doer     Doer
	elements Elements

	seq atomic.Uint64
	mu  sync.Mutex
}

// NewHandler wires a handler against baseURL. A nil doer falls back to http.DefaultClient.
func NewHandler(baseURL string, doer Doer, elements Elements) (*Handler, error) {
	if elements.Result == nil {
		return nil, errors.New("result view is required")
	}
	if elements.Download == nil {
		return nil, errors.New("download button is required")
	}
	if elements.Navigator == nil {
		return nil, errors.New("navigator is required")
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Handler{
		baseURL:  strings.TrimRight(baseURL, "/"),
		doer:     doer,
		elements: elements,
	}, nil
}

// Submit sends text verbatim to the prediction endpoint and renders the result.
// When a later Submit has started before this one resolves, the outcome is
// returned as stale and nothing is rendered.
func (h *Handler) Submit(ctx context.Context, text string) Outcome {
	seq := h.seq.Add(1)
	result, err := h.fetch(ctx, text)
	outcome := Outcome{Result: result, Err: err}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seq.Load() != seq {
		outcome.Stale = true
		logrus.WithField("seq", seq).Debug("dropping superseded prediction response")
		return outcome
	}
	h.render(outcome)
	return outcome
}

// DownloadPath reports the path the download button navigates to.
func (h *Handler) DownloadPath() string {
	return DownloadPath
}

func (h *Handler) fetch(ctx context.Context, text string) (*PredictionResult, error) {
	body := "query=" + EncodeQuery(text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+PredictPath, bytes.NewBufferString(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	var result PredictionResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error == "" && result.Data == nil {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrEmptyPayload)
	}
	return &result, nil
}

func (h *Handler) render(outcome Outcome) {
	if outcome.Err != nil {
		logrus.WithError(outcome.Err).Warn("prediction request failed")
		h.elements.Result.SetText("Error: " + FailureMessage)
		return
	}
	result := outcome.Result
	if result.Error != "" {
		h.elements.Result.SetText("Error: " + result.Error)
		return
	}

	markup, err := RenderResult(*result.Data)
	if err != nil {
		logrus.WithError(err).Warn("render prediction")
		h.elements.Result.SetText("Error: " + FailureMessage)
		return
	}
	h.elements.Result.SetHTML(markup)

	h.elements.Download.Show()
	navigator := h.elements.Navigator
	h.elements.Download.OnClick(func() {
		navigator.Navigate(DownloadPath)
	})
}

// RenderResult builds the labeled fragment for data with every value escaped.
func RenderResult(data PredictionData) (string, error) {
	var buf bytes.Buffer
	if err := resultTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
