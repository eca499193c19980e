package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
)

// Gemini defaults. The key is read from the environment when the
// config leaves it empty.
const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-2.5-flash"
	GeminiAPIKeyEnv      = "GEMINI_API_KEY"
	defaultGeminiTimeout = 60 * time.Second
)

// GeminiConfig configures the Gemini-backed oracle.
type GeminiConfig struct {
	BaseURL       string
	Model         string
	APIKey        string
	APIKeyInQuery bool
	Timeout       time.Duration
	Debug         bool
}

// GeminiOracle asks the Gemini generateContent endpoint for decisions.
type GeminiOracle struct {
	hc      *http.Client
	url     string
	apiKey  string
	inQuery bool
	debug   bool
}

// NewGeminiOracle validates the configuration and builds the client.
// The endpoint URL is fixed at construction; only the key placement
// varies per request.
func NewGeminiOracle(cfg GeminiConfig) (*GeminiOracle, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(GeminiAPIKeyEnv)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini oracle: missing API key (set %s)", GeminiAPIKeyEnv)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGeminiTimeout
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") +
		"/v1beta/models/" + url.PathEscape(cfg.Model) + ":generateContent"

	return &GeminiOracle{
		hc:      &http.Client{Timeout: cfg.Timeout},
		url:     endpoint,
		apiKey:  cfg.APIKey,
		inQuery: cfg.APIKeyInQuery,
		debug:   cfg.Debug,
	}, nil
}

// Name identifies the oracle in logs and reports.
func (g *GeminiOracle) Name() string { return "gemini" }

// Request and response wire shapes, minimal fields only.
type gmPart struct {
	Text string `json:"text"`
}
type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}
type gmGenerationConfig struct {
	ResponseMIMEType string `json:"response_mime_type,omitempty"`
}
type gmReq struct {
	Contents         []gmContent         `json:"contents"`
	GenerationConfig *gmGenerationConfig `json:"generationConfig,omitempty"`
}
type gmResp struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// upstreamError implements net.Error so HTTP 5xx and 408 classify as
// transient. It also matches ErrTimeout under errors.Is, which is the
// class the retry layers key on.
type upstreamError struct {
	status int
	msg    string
}

func (e upstreamError) Error() string {
	return fmt.Sprintf("gemini upstream %d: %s", e.status, e.msg)
}
func (e upstreamError) Timeout() bool   { return e.status == http.StatusRequestTimeout }
func (e upstreamError) Temporary() bool { return e.status/100 == 5 }
func (e upstreamError) Is(target error) bool {
	return target == ErrTimeout
}

// Decide sends one field to Gemini and parses the verdict.
func (g *GeminiOracle) Decide(ctx context.Context, req Request) (Decision, error) {
	system, user := BuildPrompt(req)
	body, err := json.Marshal(&gmReq{
		Contents: []gmContent{
			{Role: "user", Parts: []gmPart{{Text: system}}},
			{Role: "user", Parts: []gmPart{{Text: user}}},
		},
		GenerationConfig: &gmGenerationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return Decision{}, fmt.Errorf("encode gemini request: %w", err)
	}

	u, err := url.Parse(g.url)
	if err != nil {
		return Decision{}, fmt.Errorf("gemini endpoint: %w", err)
	}
	if g.inQuery {
		q := u.Query()
		q.Set("key", g.apiKey)
		u.RawQuery = q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if !g.inQuery {
		httpReq.Header.Set("x-goog-api-key", g.apiKey)
	}

	resp, err := g.hc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Decision{}, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Decision{}, fmt.Errorf("gemini request: %v: %w", err, ErrTimeout)
		}
		return Decision{}, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Decision{}, fmt.Errorf("gemini: %w", ErrRateLimited)
	}
	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(slurp))
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode/100 == 5 {
			return Decision{}, upstreamError{status: resp.StatusCode, msg: msg}
		}
		return Decision{}, fmt.Errorf("gemini upstream %d: %s: %w", resp.StatusCode, msg, ErrMalformed)
	}

	var gr gmResp
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Decision{}, fmt.Errorf("decode gemini response: %w", ErrMalformed)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 ||
		gr.Candidates[0].Content.Parts[0].Text == "" {
		return Decision{}, fmt.Errorf("gemini response has no content: %w", ErrMalformed)
	}

	text := gr.Candidates[0].Content.Parts[0].Text
	if g.debug {
		snippet := text
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		log.Printf("gemini raw decision for %s: %s", req.RawName, snippet)
	}
	return parseDecision(text, req)
}

var decisionJSONPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseDecision extracts the decision JSON from model output, repairs
// the escape sequences flash models habitually emit, normalizes the
// label, and validates the verdict.
func parseDecision(text string, req Request) (Decision, error) {
	match := decisionJSONPattern.FindString(text)
	if match == "" {
		return Decision{}, fmt.Errorf("no JSON object in oracle output: %w", ErrMalformed)
	}
	cleaned := cleanEscapes(match)

	var wire wireDecision
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return Decision{}, fmt.Errorf("decode decision JSON: %v: %w", err, ErrMalformed)
	}

	action, err := ParseAction(wire.Action)
	if err != nil {
		return Decision{}, err
	}

	label := wire.Label
	if label == "" || label == "unknown" {
		if action == ActionKeep {
			label = req.RawName
		} else {
			return Decision{}, fmt.Errorf("decision without a label: %w", ErrMalformed)
		}
	}
	fixed := corpus.Normalize(label, req.RawName)
	if err := corpus.Validate(fixed); err != nil {
		return Decision{}, fmt.Errorf("unusable label %q: %v: %w", label, err, ErrMalformed)
	}

	rawName := wire.RawName
	if rawName == "" {
		rawName = req.RawName
	}
	return Decision{
		Action:      action,
		RawName:     rawName,
		Label:       fixed,
		Description: wire.Description,
		Confidence:  normalizeConfidence(wire.Confidence),
		Reasoning:   wire.Reasoning,
	}, nil
}

var badEscapePattern = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// cleanEscapes doubles the invalid escape sequences (\. \# and
// friends) that appear when the model copies regex-flavored text into
// JSON strings.
func cleanEscapes(s string) string {
	return badEscapePattern.ReplaceAllString(s, `\\$1`)
}
