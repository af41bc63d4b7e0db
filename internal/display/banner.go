package display

import (
	"fmt"
	"io"
	"strings"
)

// ServerInfo holds everything shown in the startup banner.
type ServerInfo struct {
	Version     string
	StoragePath string

	Books        int
	TotalQuotes  int
	CustomQuotes int

	Provider string
	Model    string
	BaseURL  string
	HasKey   bool

	Port int
}

// PrintBanner prints the startup banner for the HTTP API.
func PrintBanner(w io.Writer, info ServerInfo) {
	host := fmt.Sprintf("http://localhost:%d", info.Port)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", headerStyle.Render("❝ Quoteshelf API Server"))
	fmt.Fprintf(w, "  %s\n\n", ruleStyle.Render(rule))

	section(w, "📚 Library")
	kv(w, "Books", fmt.Sprintf("%d", info.Books))
	kv(w, "Total Quotes", fmt.Sprintf("%d (%d custom)", info.TotalQuotes, info.CustomQuotes))
	kv(w, "Storage", info.StoragePath)
	fmt.Fprintln(w)

	section(w, "⚙️  Extraction")
	kv(w, "Provider", info.Provider)
	if info.Model != "" {
		kv(w, "Model", info.Model)
	} else {
		kv(w, "Model", "(auto-detect)")
	}
	kv(w, "Endpoint", maskURL(info.BaseURL))
	if info.HasKey {
		kv(w, "API Key", successStyle.Render("✓ saved"))
	} else {
		kv(w, "API Key", warnStyle.Render("✗ missing (run: quoteshelf key set)"))
	}
	if info.Version != "" {
		kv(w, "Version", info.Version)
	}
	fmt.Fprintln(w)

	section(w, "🌐 Endpoints")
	endpoint(w, "GET ", host+"/api/quotes/random")
	endpoint(w, "GET ", host+"/api/books")
	endpoint(w, "POST", host+"/api/books")
	endpoint(w, "GET ", host+"/metrics")
	endpoint(w, "GET ", host+"/health")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", ruleStyle.Render(rule))
	fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("🚀 Server listening on"), successStyle.Render(host))
	fmt.Fprintf(w, "  %s\n\n", ruleStyle.Render(rule))
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "  %s\n", boldStyle.Foreground(warnStyle.GetForeground()).Render(title))
}

func kv(w io.Writer, key, value string) {
	fmt.Fprintf(w, "    %s  %s\n", keyStyle.Render(key), value)
}

func endpoint(w io.Writer, method, url string) {
	fmt.Fprintf(w, "    %s %s\n", boldStyle.Render(method), url)
}

// maskURL trims a trailing slash for compact display.
func maskURL(rawURL string) string {
	if rawURL == "" {
		return "(not set)"
	}
	return strings.TrimRight(rawURL, "/")
}
