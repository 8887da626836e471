// Package testserver provides an in-process fake of the CoinGecko markets
// endpoint for tests.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MarketsPath is the path the fake serves
const MarketsPath = "/coins/markets"

// Always makes a configured failure permanent
const Always = -1

type failure struct {
	status    int
	remaining int
}

// Server simulates /coins/markets. Each page returns per_page synthetic
// entries whose market_cap_rank is the entry's global position, so callers
// can check both count and order.
type Server struct {
	server       *httptest.Server
	requestCount int32

	mu       sync.Mutex
	failures map[int]*failure
	rawPages map[int]string
	delays   map[int]time.Duration
	queries  []url.Values
}

// New starts a fake upstream. Close it when done.
func New() *Server {
	s := &Server{
		failures: make(map[int]*failure),
		rawPages: make(map[int]string),
		delays:   make(map[int]time.Duration),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(MarketsPath, s.handleMarkets)
	s.server = httptest.NewServer(mux)
	return s
}

// URL is the base URL to use in place of the public API root
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// FailPage answers requests for page with status. times limits how many
// requests fail before the page is served normally; Always never recovers.
func (s *Server) FailPage(page, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[page] = &failure{status: status, remaining: times}
}

// SetRawPage serves body verbatim for page with status 200
func (s *Server) SetRawPage(page int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawPages[page] = body
}

// SetDelay holds the response for page until d elapses or the client goes away
func (s *Server) SetDelay(page int, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[page] = d
}

// RequestCount is the number of requests received so far
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

// Queries returns the query of every request in arrival order
func (s *Server) Queries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.queries))
	copy(out, s.queries)
	return out
}

// Entry is the shape of the synthetic entries the fake returns
type Entry struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	CurrentPrice  float64    `json:"current_price"`
	MarketCapRank int        `json:"market_cap_rank"`
	Sparkline     *Sparkline `json:"sparkline_in_7d,omitempty"`
}

// Sparkline mirrors the sparkline_in_7d object
type Sparkline struct {
	Price []float64 `json:"price"`
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)
	query := r.URL.Query()

	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		http.Error(w, `{"error":"invalid page"}`, http.StatusBadRequest)
		return
	}
	perPage, err := strconv.Atoi(query.Get("per_page"))
	if err != nil || perPage < 1 {
		http.Error(w, `{"error":"invalid per_page"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.queries = append(s.queries, query)
	delay := s.delays[page]
	raw, hasRaw := s.rawPages[page]
	status := 0
	if f, ok := s.failures[page]; ok && f.remaining != 0 {
		status = f.status
		if f.remaining > 0 {
			f.remaining--
		}
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"status":{"error_code":%d}}`, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if hasRaw {
		_, _ = w.Write([]byte(raw))
		return
	}

	sparkline := query.Get("sparkline") == "true"
	entries := make([]Entry, 0, perPage)
	for i := 0; i < perPage; i++ {
		rank := (page-1)*perPage + i + 1
		e := Entry{
			ID:            fmt.Sprintf("coin-%d", rank),
			Symbol:        fmt.Sprintf("c%d", rank),
			Name:          fmt.Sprintf("Coin %d", rank),
			CurrentPrice:  float64(100000) / float64(rank),
			MarketCapRank: rank,
		}
		if sparkline {
			e.Sparkline = &Sparkline{Price: []float64{e.CurrentPrice, e.CurrentPrice * 1.01}}
		}
		entries = append(entries, e)
	}
	_ = json.NewEncoder(w).Encode(entries)
}
