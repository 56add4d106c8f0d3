// Package remote implements the two-phase token client: a mutating
// record_scan call followed by a read-only validate call.  Every failure
// mode (transport, timeout, bad status, malformed body) is normalized into
// a fully populated ValidationResult; no error ever escapes Process.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/daniu006/qrgate/internal/qrgate/types"
)

// maxResponseBody caps how much of a remote response we are willing to read.
const maxResponseBody = 1 << 20

type Client struct {
	baseURL string
	httpc   *http.Client
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// recordResponse is the body of POST /tokens/{token}/record_scan.
type recordResponse struct {
	Success     bool   `json:"success"`
	IsFirstScan bool   `json:"is_first_scan"`
	Message     string `json:"message"`
}

// validateResponse is the body of GET /tokens/{token}/validate.
type validateResponse struct {
	Valid         bool            `json:"valid"`
	Message       string          `json:"message"`
	Status        string          `json:"status,omitempty"`
	TokenData     json.RawMessage `json:"token_data,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	FirstScan     *bool           `json:"first_scan,omitempty"`
	PreviousScans []string        `json:"previous_scans,omitempty"`
}

// Process runs record-then-validate for payload.  The two calls are never
// reordered or parallelized; validate is issued only if record succeeded.
func (c *Client) Process(ctx context.Context, payload string) types.ValidationResult {
	var rec recordResponse
	recRaw, fail := c.call(ctx, http.MethodPost, c.endpoint(payload, "record_scan"), &rec)
	if fail != nil {
		return failureResult(types.StateErrorAttendance, "attendance record failed", fail)
	}
	if !rec.Success {
		// The endpoint answered but the mutation did not happen; validate
		// must be skipped just like a transport failure.
		return types.ValidationResult{
			State:   types.StateErrorAttendance,
			Valid:   false,
			Message: "attendance record failed: " + rec.Message,
			Raw:     recRaw,
		}
	}

	var val validateResponse
	valRaw, fail := c.call(ctx, http.MethodGet, c.endpoint(payload, "validate"), &val)
	if fail != nil {
		return failureResult(types.StateError, "validation failed", fail)
	}

	tokenData, err := parseTokenData(val.TokenData)
	if err != nil {
		return failureResult(types.StateError, "validation failed", &callFailure{
			kind:   failProtocol,
			detail: fmt.Sprintf("malformed token_data: %v", err),
		})
	}

	result := types.ValidationResult{
		Valid:         val.Valid,
		Message:       val.Message,
		TokenData:     tokenData,
		Warnings:      val.Warnings,
		FirstScan:     val.FirstScan,
		PreviousScans: parseScanTimes(val.PreviousScans),
		Raw:           valRaw,
	}

	if val.Valid {
		// The record call is authoritative for first-vs-repeat: the validate
		// response already counts the scan we just recorded.
		result.State = types.StateAttendanceRecorded
		result.FirstScan = &rec.IsFirstScan
		result.Message = registrationMessage(rec.IsFirstScan, c.now())
		return result
	}

	result.State = denialState(val.Status)
	return result
}

func (c *Client) endpoint(payload, op string) string {
	return fmt.Sprintf("%s/tokens/%s/%s", c.baseURL, url.PathEscape(payload), op)
}

// call performs one HTTP round trip and decodes the 200 body into out.
// It returns the verbatim body for auditing.
func (c *Client) call(ctx context.Context, method, endpoint string, out any) (json.RawMessage, *callFailure) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, &callFailure{kind: failProtocol, detail: err.Error()}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &callFailure{
			kind:   failStatus,
			detail: fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, classify(err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, &callFailure{
			kind:   failProtocol,
			detail: fmt.Sprintf("malformed response: %v", err),
		}
	}
	return body, nil
}

const (
	failTimeout    = "timeout"
	failConnection = "connection"
	failStatus     = "unexpected_status"
	failProtocol   = "protocol"
)

// callFailure is the normalized shape of any failed remote call.
type callFailure struct {
	kind   string
	detail string
}

// document renders the failure as the audit error payload,
// e.g. {"error": "HTTP 503"}.
func (f *callFailure) document() json.RawMessage {
	doc, _ := json.Marshal(map[string]string{"error": f.detail})
	return doc
}

func classify(err error) *callFailure {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &callFailure{kind: failTimeout, detail: "timeout: " + ue.Err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &callFailure{kind: failTimeout, detail: "timeout: " + err.Error()}
	}
	return &callFailure{kind: failConnection, detail: "connection error: " + err.Error()}
}

func failureResult(state types.State, phase string, fail *callFailure) types.ValidationResult {
	return types.ValidationResult{
		State:   state,
		Valid:   false,
		Message: fmt.Sprintf("%s: %s", phase, fail.detail),
		Raw:     fail.document(),
	}
}

func registrationMessage(firstScan bool, at time.Time) string {
	kind := "additional registration"
	if firstScan {
		kind = "first registration"
	}
	return fmt.Sprintf("attendance recorded: %s at %s", kind, at.Format(time.RFC3339))
}

// denialState maps the remote status hint onto a State, defaulting to
// INACTIVE_OR_MISSING when the service gives no recognizable hint.
func denialState(status string) types.State {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "expired":
		return types.StateExpired
	case "active":
		return types.StateActive
	default:
		return types.StateInactiveOrMissing
	}
}

func parseTokenData(raw json.RawMessage) (*structpb.Struct, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	return s, nil
}

// parseScanTimes parses remote timestamps, skipping entries that do not
// parse rather than failing the whole scan.
func parseScanTimes(raw []string) []time.Time {
	if len(raw) == 0 {
		return nil
	}
	out := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		if t := parseOptionalTimestamp(s); t != nil {
			out = append(out, *t)
		}
	}
	return out
}

func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u := t.UTC()
		return &u
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
