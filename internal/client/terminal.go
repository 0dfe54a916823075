package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// TextView renders the result container onto a terminal writer.
type TextView struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTextView writes rendered results to out.
func NewTextView(out io.Writer) *TextView {
	return &TextView{out: out}
}

func (v *TextView) SetText(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, text)
}

func (v *TextView) SetHTML(markup string) {
	text, err := MarkupText(markup)
	if err != nil {
		text = markup
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, text)
}

// MarkupText flattens an HTML fragment into one line per block element.
func MarkupText(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "br", "div", "li":
				b.WriteByte('\n')
			}
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n"), nil
}

// Button is a headless download button. Click invokes the bound action once visible.
type Button struct {
	mu      sync.Mutex
	visible bool
	action  func()
}

func (b *Button) Show() {
	b.mu.Lock()
	b.visible = true
	b.mu.Unlock()
}

func (b *Button) OnClick(fn func()) {
	b.mu.Lock()
	b.action = fn
	b.mu.Unlock()
}

// Visible reports whether Show has been called.
func (b *Button) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// Click runs the bound action. It reports false when the button is hidden or unbound.
func (b *Button) Click() bool {
	b.mu.Lock()
	visible, action := b.visible, b.action
	b.mu.Unlock()
	if !visible || action == nil {
		return false
	}
	action()
	return true
}

// FileNavigator follows a navigation by downloading the target into a local file.
type FileNavigator struct {
	BaseURL string
	Doer    Doer
	Path    string

	mu  sync.Mutex
	err error
}

func (n *FileNavigator) Navigate(path string) {
	err := n.download(context.Background(), path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("download failed")
	}
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

// Err returns the result of the last navigation.
func (n *FileNavigator) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

func (n *FileNavigator) download(ctx context.Context, path string) error {
	doer := n.Doer
	if doer == nil {
		doer = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(n.BaseURL, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := doer.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}

	f, err := os.Create(n.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", n.Path, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", n.Path, err)
	}
	return f.Close()
}
