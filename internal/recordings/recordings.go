// Package recordings proxies the per-server recording archive. The
// upstream is an opaque PHP endpoint returning loosely-shaped JSON; this
// package normalizes it, sorts and paginates server-side, and caps
// concurrent fetches per upstream host. It holds no database locks.
package recordings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"xdial-backend/internal/apperr"
	"xdial-backend/internal/dialer"
	"xdial-backend/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// ErrServerBusy means the per-server concurrency cap rejected the fetch.
var ErrServerBusy = errors.New("recording server busy")

// UpstreamError reports a failure talking to the recording server.
type UpstreamError struct {
	StatusCode int // 0 when the request never completed
	Msg        string
}

func (e *UpstreamError) Error() string { return e.Msg }

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

var validSortColumns = map[string]bool{
	"time": true, "phone": true, "duration": true, "size": true,
}

// FetchParams are the caller-supplied query parameters. Zero values fall
// back to defaults during normalization rather than erroring.
type FetchParams struct {
	ServerID  int64
	Date      string // YYYYMMDD
	Extension string
	Number    string // optional filter

	Page     int
	PageSize int
	SortBy   string
	SortDir  string
}

func (p *FetchParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	if !validSortColumns[p.SortBy] {
		p.SortBy = "time"
	}
	if p.SortDir != "asc" && p.SortDir != "desc" {
		p.SortDir = "desc"
	}
}

func (p FetchParams) validate() error {
	if len(p.Date) != 8 || !isDigits(p.Date) {
		return apperr.Validation("date", "expected YYYYMMDD")
	}
	if p.Extension == "" {
		return apperr.Validation("extension", "required")
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Page is one slice of the sorted upstream result.
type Page struct {
	Recordings []map[string]any `json:"recordings"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	HasNext    bool             `json:"has_next"`
	HasPrev    bool             `json:"has_prev"`
}

// Service fetches and shapes recording listings.
type Service struct {
	servers dialer.Repository
	client  *http.Client

	// rdb is optional; nil disables the per-server concurrency cap.
	rdb           *redis.Client
	maxConcurrent int
}

func NewService(servers dialer.Repository, timeout time.Duration, rdb *redis.Client, maxConcurrent int) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Service{
		servers:       servers,
		client:        &http.Client{Timeout: timeout},
		rdb:           rdb,
		maxConcurrent: maxConcurrent,
	}
}

// Fetch retrieves one page of recordings from the server's archive.
func (s *Service) Fetch(ctx context.Context, p FetchParams) (Page, error) {
	p.normalize()
	if err := p.validate(); err != nil {
		return Page{}, err
	}

	server, err := s.servers.GetServer(ctx, p.ServerID)
	if err != nil {
		return Page{}, err
	}
	if server.Domain == "" {
		return Page{}, fmt.Errorf("server %d has no domain configured: %w", p.ServerID, apperr.ErrNotFound)
	}

	if s.rdb != nil {
		key := fmt.Sprintf("xdial:recfetch:%d", p.ServerID)
		ok, err := utils.AcquireConcurrencyCap(ctx, s.rdb, key, s.maxConcurrent, s.client.Timeout+5*time.Second)
		if err == nil && !ok {
			return Page{}, ErrServerBusy
		}
		if err == nil {
			defer func() { _ = utils.ReleaseConcurrencyCap(context.WithoutCancel(ctx), s.rdb, key) }()
		}
		// Cap-check errors fall through: a broken redis must not take the
		// archive offline.
	}

	recs, err := s.fetchAll(ctx, server.Domain, p)
	if err != nil {
		return Page{}, err
	}

	sortRecordings(recs, p.SortBy, p.SortDir)
	return paginate(recs, p.Page, p.PageSize), nil
}

func (s *Service) fetchAll(ctx context.Context, domain string, p FetchParams) ([]map[string]any, error) {
	if !strings.HasSuffix(domain, "/") {
		domain += "/"
	}
	q := url.Values{}
	q.Set("date", p.Date)
	q.Set("extension", p.Extension)
	if p.Number != "" {
		q.Set("number", p.Number)
	}
	reqURL := domain + "server_api/fetch_recording.php?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Msg: "recording server unreachable: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Msg:        fmt.Sprintf("recording server returned %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &UpstreamError{Msg: "reading recording server response: " + err.Error()}
	}
	return decodeRecordings(body)
}

// decodeRecordings tolerates both upstream shapes: a JSON array of rows or
// an object whose values are the rows.
func decodeRecordings(body []byte) ([]map[string]any, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &UpstreamError{Msg: "invalid JSON from recording server"}
	}

	switch v := raw.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]map[string]any, 0, len(v))
		for _, k := range keys {
			if m, ok := v[k].(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, nil
	default:
		return nil, nil
	}
}

func getString(rec map[string]any, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

// phoneOf prefers phone_number and falls back to number; upstream servers
// disagree on the field name.
func phoneOf(rec map[string]any) string {
	if v := getString(rec, "phone_number"); v != "" {
		return v
	}
	return getString(rec, "number")
}

func sortRecordings(recs []map[string]any, sortBy, sortDir string) {
	desc := sortDir == "desc"
	less := func(a, b map[string]any) bool { return getString(a, "time") < getString(b, "time") }

	switch sortBy {
	case "phone":
		less = func(a, b map[string]any) bool { return phoneOf(a) < phoneOf(b) }
	case "duration":
		less = func(a, b map[string]any) bool {
			return ParseDurationToSeconds(getString(a, "duration")) < ParseDurationToSeconds(getString(b, "duration"))
		}
	case "size":
		less = func(a, b map[string]any) bool {
			return ParseSizeToBytes(getString(a, "size")) < ParseSizeToBytes(getString(b, "size"))
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if desc {
			return less(recs[j], recs[i])
		}
		return less(recs[i], recs[j])
	})
}

func paginate(recs []map[string]any, page, pageSize int) Page {
	total := len(recs)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page{
		Recordings: recs[start:end],
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ParseDurationToSeconds converts "MM:SS" or "HH:MM:SS" to seconds.
// Unparseable input sorts as zero rather than erroring.
func ParseDurationToSeconds(s string) int {
	if s == "" || s == "N/A" {
		return 0
	}
	parts := strings.Split(s, ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		nums[i] = n
	}
	switch len(nums) {
	case 2:
		return nums[0]*60 + nums[1]
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2]
	default:
		return 0
	}
}

var sizeRe = regexp.MustCompile(`(?i)^([\d.]+)\s*([A-Z]+)$`)

var sizeUnits = map[string]float64{
	"B":  1,
	"KB": 1024,
	"MB": 1024 * 1024,
	"GB": 1024 * 1024 * 1024,
}

// ParseSizeToBytes converts strings like "1.5 MB" to bytes. Unknown units
// count as bytes; unparseable input sorts as zero.
func ParseSizeToBytes(s string) float64 {
	if s == "" || s == "N/A" {
		return 0
	}
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	mult, ok := sizeUnits[strings.ToUpper(m[2])]
	if !ok {
		mult = 1
	}
	return value * mult
}
