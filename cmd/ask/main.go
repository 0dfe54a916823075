package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cyberlaw-advisor/backend/internal/client"
)

func main() {
	_ = godotenv.Load()

	var (
		serverURL = flag.String("server", envOr("CYBERLAW_SERVER", "http://localhost:5001"), "Base URL of the advisor server")
		email     = flag.String("email", os.Getenv("CYBERLAW_EMAIL"), "Account email (env CYBERLAW_EMAIL)")
		password  = flag.String("password", os.Getenv("CYBERLAW_PASSWORD"), "Account password (env CYBERLAW_PASSWORD)")
		query     = flag.String("query", "", "Incident description; remaining arguments are used when empty")
		download  = flag.String("download", "", "Save the PDF report to this path after a successful prediction")
		timeout   = flag.Duration("timeout", 60*time.Second, "Overall request timeout")
	)
	flag.Parse()

	text := *query
	if text == "" {
		text = strings.Join(flag.Args(), " ")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		logrus.Fatalf("cookie jar: %v", err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: *timeout}

	if err := login(httpClient, *serverURL, *email, *password); err != nil {
		logrus.Fatalf("login: %v", err)
	}

	button := &client.Button{}
	navigator := &client.FileNavigator{BaseURL: *serverURL, Doer: httpClient, Path: *download}
	handler, err := client.NewHandler(*serverURL, httpClient, client.Elements{
		Result:    client.NewTextView(os.Stdout),
		Download:  button,
		Navigator: navigator,
	})
	if err != nil {
		logrus.Fatalf("configure handler: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	outcome := handler.Submit(ctx, text)
	if outcome.Err != nil || (outcome.Result != nil && outcome.Result.Error != "") {
		os.Exit(1)
	}

	if *download == "" {
		return
	}
	if !button.Click() {
		logrus.Fatal("report download is not available")
	}
	if err := navigator.Err(); err != nil {
		logrus.Fatalf("download report: %v", err)
	}
	fmt.Fprintf(os.Stderr, "report saved to %s\n", *download)
}

func login(hc *http.Client, serverURL, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return errors.New("email and password are required")
	}
	resp, err := hc.PostForm(strings.TrimRight(serverURL, "/")+"/login", url.Values{
		"email":    {email},
		"password": {password},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/" {
		return fmt.Errorf("rejected with status %d", resp.StatusCode)
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
