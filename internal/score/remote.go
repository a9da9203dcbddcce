package score

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultRemoteTimeout = 30 * time.Second

	// secretHeader carries the shared proxy secret, matching the header the
	// assessment proxy expects.
	secretHeader = "x-pronounce-secret"
)

// RemoteOption is a functional option for configuring a [RemoteJudge].
type RemoteOption func(*RemoteJudge)

// WithRemoteTimeout sets the per-request HTTP timeout. Default: 30 s.
func WithRemoteTimeout(d time.Duration) RemoteOption {
	return func(r *RemoteJudge) {
		r.httpClient.Timeout = d
	}
}

// WithRemoteSecret sets the shared secret sent on every request.
func WithRemoteSecret(secret string) RemoteOption {
	return func(r *RemoteJudge) {
		r.secret = secret
	}
}

// WithMiscueDetection enables miscue detection (insertions/omissions) on the
// assessment service. Default: true, matching the web client.
func WithMiscueDetection(enabled bool) RemoteOption {
	return func(r *RemoteJudge) {
		r.enableMiscue = enabled
	}
}

// AssessRequest describes one remote pronunciation assessment.
type AssessRequest struct {
	// TargetText is the phrase the learner attempted, with accents preserved.
	TargetText string

	// Language is the full locale tag for the assessment (e.g. "fr-FR").
	Language string

	// AudioWAV is the captured attempt as a 16 kHz mono PCM16 WAV file.
	AudioWAV []byte
}

// AssessResult is the structured response of the assessment service.
type AssessResult struct {
	OverallScore int
	Grade        string

	// RecognizedText is what the service's recognizer heard, for user-facing
	// feedback only; it plays no role in scoring.
	RecognizedText string
}

// Verdict converts the remote score into the same [Verdict] shape the local
// judge produces, so callers can swap judges without branching.
func (a *AssessResult) Verdict(threshold int) Verdict {
	return Verdict{
		OverallPercent: a.OverallScore,
		Pass:           a.OverallScore >= threshold,
		UsedHeard:      a.RecognizedText,
	}
}

// RemoteJudge delegates pronunciation judging to an HTTP assessment proxy.
// Unlike the local [Judge] it scores recorded audio rather than a transcript,
// but it yields the same [Verdict] shape. Safe for concurrent use.
type RemoteJudge struct {
	baseURL      string
	secret       string
	enableMiscue bool
	httpClient   *http.Client
}

// NewRemoteJudge creates a RemoteJudge targeting the assessment proxy at
// baseURL (e.g. "https://app.example.com/.netlify/functions/pronounce").
func NewRemoteJudge(baseURL string, opts ...RemoteOption) *RemoteJudge {
	r := &RemoteJudge{
		baseURL:      baseURL,
		enableMiscue: true,
		httpClient:   &http.Client{Timeout: defaultRemoteTimeout},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// assessBody is the JSON request body expected by the proxy.
type assessBody struct {
	TargetText   string `json:"targetText"`
	Language     string `json:"language"`
	AudioBase64  string `json:"audioBase64"`
	EnableMiscue bool   `json:"enableMiscue"`
}

// assessResponse is the JSON response shape of the proxy.
type assessResponse struct {
	OverallScore int    `json:"overallScore"`
	Grade        string `json:"grade"`
	Details      struct {
		RecognizedText string `json:"recognizedText"`
	} `json:"details"`
	Error string `json:"error"`
}

// healthResponse is the JSON response of the proxy's GET health check.
type healthResponse struct {
	OK bool `json:"ok"`
}

// Healthy probes the proxy with a GET request and returns an error when it is
// unreachable or reports not-ok. Used as a readiness check so a missing proxy
// surfaces at startup rather than on the learner's first attempt.
func (r *RemoteJudge) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL, nil)
	if err != nil {
		return fmt.Errorf("score: build health request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("score: assessment proxy unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("score: assessment proxy health check returned %d", resp.StatusCode)
	}
	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return fmt.Errorf("score: decode health response: %w", err)
	}
	if !h.OK {
		return fmt.Errorf("score: assessment proxy reports not ok")
	}
	return nil
}

// Assess submits one attempt to the proxy and returns its structured result.
func (r *RemoteJudge) Assess(ctx context.Context, req AssessRequest) (*AssessResult, error) {
	if len(req.AudioWAV) == 0 {
		return nil, fmt.Errorf("score: assess: empty audio")
	}

	body := assessBody{
		TargetText:   req.TargetText,
		Language:     req.Language,
		AudioBase64:  "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(req.AudioWAV),
		EnableMiscue: r.enableMiscue,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("score: encode assess request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("score: build assess request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		httpReq.Header.Set(secretHeader, r.secret)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("score: assessment request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("score: read assessment response: %w", err)
	}

	var ar assessResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return nil, fmt.Errorf("score: decode assessment response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if ar.Error != "" {
			return nil, fmt.Errorf("score: assessment failed (HTTP %d): %s", resp.StatusCode, ar.Error)
		}
		return nil, fmt.Errorf("score: assessment failed (HTTP %d)", resp.StatusCode)
	}

	return &AssessResult{
		OverallScore:   ar.OverallScore,
		Grade:          ar.Grade,
		RecognizedText: ar.Details.RecognizedText,
	}, nil
}
