package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cyberlaw-advisor/backend/internal/ai"
	"cyberlaw-advisor/backend/internal/client"
)

const testDataset = `Section,Offense,Punishment,Case Type
Section 66C,Identity theft using password or electronic signature,Imprisonment up to 3 years and fine up to 1 lakh,Criminal
Section 66D,Cheating by personation using computer resource,Imprisonment up to 3 years and fine up to 1 lakh,Criminal
Section 43,Damage to computer system or unauthorised access,Compensation to the affected person,Civil
Section 67,Publishing obscene material in electronic form,Imprisonment up to 5 years and fine up to 10 lakh,Criminal
`

type failingWriter struct{}

func (failingWriter) Enabled() bool { return true }

func (failingWriter) Procedure(context.Context, string) (string, error) {
	return "", errors.New("quota exceeded")
}

func newTestServer(t *testing.T, writer ai.ProcedureWriter) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "laws.csv")
	if err := os.WriteFile(datasetPath, []byte(testDataset), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if writer == nil {
		writer = ai.Static("File an FIR with the cyber crime cell.")
	}
	server, err := NewServer(Config{
		DBPath:          filepath.Join(dir, "test.db"),
		DatasetPath:     datasetPath,
		SilentDB:        true,
		ProcedureWriter: writer,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = server.Close() })
	router, err := server.Router()
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func noRedirect(hc *http.Client) *http.Client {
	clone := *hc
	clone.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &clone
}

func signIn(t *testing.T, ts *httptest.Server, hc *http.Client, email string) {
	t.Helper()
	resp, err := hc.PostForm(ts.URL+"/register", url.Values{
		"username": {strings.Split(email, "@")[0]},
		"email":    {email},
		"password": {"pa55word"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/login" {
		t.Fatalf("register should land on login page, got %d %s", resp.StatusCode, resp.Request.URL.Path)
	}

	resp, err = hc.PostForm(ts.URL+"/login", url.Values{"email": {email}, "password": {"pa55word"}})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/" {
		t.Fatalf("login should land on index, got %d %s", resp.StatusCode, resp.Request.URL.Path)
	}
}

type capturedView struct {
	text string
	html string
}

func (v *capturedView) SetText(text string)   { v.text, v.html = text, "" }
func (v *capturedView) SetHTML(markup string) { v.html, v.text = markup, "" }

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}

func TestAnonymousAccess(t *testing.T) {
	ts := newTestServer(t, nil)
	hc := noRedirect(newBrowser(t))

	for _, path := range []string{"/", "/download_report", "/logout"} {
		resp, err := hc.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
			t.Fatalf("%s: expected redirect to /login, got %d %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	resp, err := hc.PostForm(ts.URL+"/predict", url.Values{"query": {"hacking"}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "login required" {
		t.Fatalf("expected 401 login required, got %d %v", resp.StatusCode, body)
	}
}

func TestFormHandlerEndToEnd(t *testing.T) {
	ts := newTestServer(t, nil)
	hc := newBrowser(t)
	signIn(t, ts, hc, "asha@example.com")

	view := &capturedView{}
	button := &client.Button{}
	reportPath := filepath.Join(t.TempDir(), "report.pdf")
	navigator := &client.FileNavigator{BaseURL: ts.URL, Doer: hc, Path: reportPath}
	handler, err := client.NewHandler(ts.URL, hc, client.Elements{Result: view, Download: button, Navigator: navigator})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	outcome := handler.Submit(context.Background(), "Someone stole my password & logged in")
	if outcome.Err != nil {
		t.Fatalf("submit: %v", outcome.Err)
	}
	if outcome.Result.Data.Section != "Section 66C" {
		t.Fatalf("unexpected section %q", outcome.Result.Data.Section)
	}
	if outcome.Result.PDFURL != "/download_report" {
		t.Fatalf("unexpected pdf url %q", outcome.Result.PDFURL)
	}
	text, err := client.MarkupText(view.html)
	if err != nil {
		t.Fatalf("markup text: %v", err)
	}
	for _, want := range []string{
		"Section: Section 66C",
		"Case Type: Criminal",
		"Procedure: File an FIR with the cyber crime cell.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in %q", want, text)
		}
	}
	if !button.Visible() {
		t.Fatalf("download button should be visible")
	}

	if !button.Click() {
		t.Fatalf("click should navigate")
	}
	if err := navigator.Err(); err != nil {
		t.Fatalf("download: %v", err)
	}
	pdf, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("downloaded report is not a PDF")
	}
}

func TestFormHandlerShowsServerErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	hc := newBrowser(t)
	signIn(t, ts, hc, "dev@example.com")

	testCases := []struct {
		name   string
		query  string
		expect string
	}{
		{"empty query", "", "Error: No query provided"},
		{"unknown vocabulary", "zzzz qqqq", "Error: No matching section found for the query"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			view := &capturedView{}
			button := &client.Button{}
			handler, err := client.NewHandler(ts.URL, hc, client.Elements{Result: view, Download: button, Navigator: &client.FileNavigator{}})
			if err != nil {
				t.Fatalf("new handler: %v", err)
			}
			handler.Submit(context.Background(), tc.query)
			if view.text != tc.expect {
				t.Fatalf("expected %q got %q", tc.expect, view.text)
			}
			if button.Visible() {
				t.Fatalf("download button must stay hidden")
			}
		})
	}
}

func TestPredictJSONAndProcedureFailure(t *testing.T) {
	ts := newTestServer(t, failingWriter{})
	hc := newBrowser(t)
	signIn(t, ts, hc, "json@example.com")

	resp, err := hc.Post(ts.URL+"/predict", "application/json", strings.NewReader(`{"query":"obscene material published"}`))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	var result client.PredictionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Message != "Prediction successful" || result.Data == nil {
		t.Fatalf("unexpected payload %+v", result)
	}
	if result.Data.Section != "Section 67" {
		t.Fatalf("unexpected section %q", result.Data.Section)
	}
	if result.Data.Procedure != "Error retrieving procedure: quota exceeded" {
		t.Fatalf("unexpected procedure %q", result.Data.Procedure)
	}
}

func TestDownloadWithoutPrediction(t *testing.T) {
	ts := newTestServer(t, nil)
	hc := newBrowser(t)
	signIn(t, ts, hc, "fresh@example.com")

	resp, err := hc.Get(ts.URL + "/download_report")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || body["error"] != "Report not found" {
		t.Fatalf("expected 404 Report not found, got %d %v", resp.StatusCode, body)
	}
}

func TestHistoryIsPerUser(t *testing.T) {
	ts := newTestServer(t, nil)
	alice := newBrowser(t)
	signIn(t, ts, alice, "alice@example.com")
	bob := newBrowser(t)
	signIn(t, ts, bob, "bob@example.com")

	for _, q := range []string{"password theft", "unauthorised access to computer"} {
		resp, err := alice.PostForm(ts.URL+"/predict", url.Values{"query": {q}})
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		resp.Body.Close()
	}

	fetch := func(hc *http.Client) HistoryResponse {
		resp, err := hc.Get(ts.URL + "/api/history?pageSize=10")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		defer resp.Body.Close()
		var history HistoryResponse
		if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return history
	}

	aliceHistory := fetch(alice)
	if aliceHistory.Total != 2 || len(aliceHistory.Items) != 2 {
		t.Fatalf("unexpected alice history %+v", aliceHistory)
	}
	if aliceHistory.Items[0].Fields.Section != "Section 43" {
		t.Fatalf("history should be newest first, got %q", aliceHistory.Items[0].Fields.Section)
	}
	if bobHistory := fetch(bob); bobHistory.Total != 0 {
		t.Fatalf("bob should see no history, got %+v", bobHistory)
	}
}

func TestRegisterDuplicateAndLogout(t *testing.T) {
	ts := newTestServer(t, nil)
	hc := newBrowser(t)
	signIn(t, ts, hc, "dup@example.com")

	resp, err := hc.PostForm(ts.URL+"/register", url.Values{"username": {"other"}, "email": {"dup@example.com"}, "password": {"x"}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.StatusCode)
	}

	resp, err = hc.Get(ts.URL + "/logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	resp.Body.Close()
	if resp.Request.URL.Path != "/login" {
		t.Fatalf("logout should land on login, got %s", resp.Request.URL.Path)
	}

	resp, err = hc.PostForm(ts.URL+"/predict", url.Values{"query": {"hacking"}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout got %d", resp.StatusCode)
	}
}

func TestStreamPushesOwnPredictions(t *testing.T) {
	ts := newTestServer(t, nil)
	hc := newBrowser(t)
	signIn(t, ts, hc, "ws@example.com")

	base, _ := url.Parse(ts.URL)
	header := http.Header{}
	for _, cookie := range hc.Jar.Cookies(base) {
		header.Add("Cookie", cookie.String())
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/stream", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var event PredictionEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read connected: %v", err)
	}
	if event.Type != "connected" {
		t.Fatalf("expected connected event got %q", event.Type)
	}

	resp, err := hc.PostForm(ts.URL+"/predict", url.Values{"query": {"cheating by personation"}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	resp.Body.Close()

	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read prediction: %v", err)
	}
	if event.Type != "prediction" || event.Prediction == nil || event.Prediction.Fields.Section != "Section 66D" {
		t.Fatalf("unexpected event %+v", event)
	}
}
