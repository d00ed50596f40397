// Package report sends recognised plate sightings to the external parking
// ledger service.
package report

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bunyaminoter/parkingAutomation/internal/httputil"
)

// DefaultTimeout bounds one report call. The tracking loop is synchronous,
// so a slow ledger must not stall frame acquisition for longer than this.
const DefaultTimeout = 5 * time.Second

const entryPath = "/api/manual_entry"

// LedgerClient posts plate sightings to the ledger's entry endpoint. Calls
// are fire-and-forget from the pipeline's point of view: the caller logs
// any error and moves on. The ledger performs its own plate-level
// deduplication independent of the per-track cooldown; the two guards cover
// different failure modes (tracker re-identification vs duplicate camera
// triggers).
type LedgerClient struct {
	baseURL string
	client  httputil.HTTPClient
}

// NewLedgerClient creates a client for the ledger at baseURL. A nil client
// gets a standard HTTP client with DefaultTimeout.
func NewLedgerClient(baseURL string, client httputil.HTTPClient) *LedgerClient {
	if client == nil {
		client = httputil.NewStandardClient(&http.Client{Timeout: DefaultTimeout})
	}
	return &LedgerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// ReportSighting posts one recognised plate with its confidence as form
// data, the encoding the ledger's manual entry endpoint accepts. A non-2xx
// response or transport error is returned for the caller to log; it carries
// no retry semantics.
func (c *LedgerClient) ReportSighting(plate string, confidence float64) error {
	form := url.Values{
		"plate_number": {plate},
		"confidence":   {strconv.FormatFloat(confidence, 'f', -1, 64)},
	}

	resp, err := c.client.Post(c.baseURL+entryPath, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("post sighting for plate %s: %w", plate, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("ledger rejected plate %s: status %d: %s", plate, resp.StatusCode, snippet)
	}

	// Drain so the connection can be reused.
	io.Copy(io.Discard, resp.Body)
	return nil
}
