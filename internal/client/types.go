package client

import "net/http"

// PredictionData is the flat record returned by the prediction endpoint.
type PredictionData struct {
	Section    string `json:"Section"`
	Offense    string `json:"Offense"`
	Punishment string `json:"Punishment"`
	CaseType   string `json:"Case Type"`
	Procedure  string `json:"Procedure"`
}

// PredictionResult is the decoded /predict payload. Only one of Error or Data is meaningful.
type PredictionResult struct {
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    *PredictionData `json:"data,omitempty"`
	PDFURL  string          `json:"pdf_url,omitempty"`
}

// Outcome is what a single submission resolved to: a decoded payload or a failure.
type Outcome struct {
	Result *PredictionResult
	Err    error
	// Stale reports that a newer submission started before this one resolved,
	// so nothing was rendered.
	Stale bool
}

// ResultView is the output container.
type ResultView interface {
	// SetText replaces the content with plain text.
	SetText(text string)
	// SetHTML replaces the content with markup.
	SetHTML(markup string)
}

// DownloadButton is initially hidden and revealed after a successful prediction.
type DownloadButton interface {
	Show()
	OnClick(fn func())
}

// Navigator performs a full navigation to path.
type Navigator interface {
	Navigate(path string)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Elements bundles the views a Handler writes to.
type Elements struct {
	Result    ResultView
	Download  DownloadButton
	Navigator Navigator
}
