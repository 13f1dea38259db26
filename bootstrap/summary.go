package bootstrap

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kbukum/sttkit/logger"
)

// ProviderEntry records a transcription provider at startup.
type ProviderEntry struct {
	Name      string
	Priority  int
	Available bool
	Status    string
	Detail    string
}

// RouteEntry records an HTTP route.
type RouteEntry struct {
	Method string
	Path   string
}

// Summary tracks and displays what the process brought up.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
	providers       []ProviderEntry
	routes          []RouteEntry
	channels        []string
	listen          string
}

// NewSummary creates a new startup summary that prints to stderr.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stderr}
}

// SetOutput redirects the printed summary. Nil disables printing.
func (s *Summary) SetOutput(w io.Writer) { s.out = w }

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackProvider records a provider's startup state.
func (s *Summary) TrackProvider(p ProviderEntry) {
	s.providers = append(s.providers, p)
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path string) {
	s.routes = append(s.routes, RouteEntry{Method: method, Path: path})
}

// TrackChannel records a notification channel.
func (s *Summary) TrackChannel(name string) {
	s.channels = append(s.channels, name)
}

// TrackListener records the bound HTTP address.
func (s *Summary) TrackListener(addr string) { s.listen = addr }

// Available returns how many tracked providers can take requests.
func (s *Summary) Available() int {
	var n int
	for _, p := range s.providers {
		if p.Available {
			n++
		}
	}
	return n
}

// Display logs a one-line summary and prints the tree to the output writer.
func (s *Summary) Display(log *logger.Logger) {
	log.Info("startup summary", map[string]interface{}{
		"providers_available": s.Available(),
		"providers_total":     len(s.providers),
		"channels":            len(s.channels),
		"startup_ms":          s.startupDuration.Milliseconds(),
	})
	if s.out == nil {
		return
	}

	w := s.out
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())
	if s.listen != "" {
		fmt.Fprintf(w, "   listening on %s\n", s.listen)
	}

	fmt.Fprintf(w, "\nProviders (%d/%d available)\n", s.Available(), len(s.providers))
	if len(s.providers) == 0 {
		fmt.Fprintf(w, "   └── none registered\n")
	}
	for i, p := range s.providers {
		mark := "ok"
		if !p.Available {
			mark = "--"
		}
		line := fmt.Sprintf("%s [%s] %d. %s (%s)", treePrefix(i, len(s.providers)), mark, p.Priority, p.Name, p.Status)
		if p.Detail != "" {
			line += ": " + p.Detail
		}
		fmt.Fprintf(w, "   %s\n", line)
	}

	if len(s.channels) > 0 {
		fmt.Fprintf(w, "\nNotification channels\n")
		for i, c := range s.channels {
			fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(s.channels)), c)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path)
		}
	}
	fmt.Fprintf(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}
