// Package ocr wraps the external text-extraction collaborator. The extractor
// is a black box: any failure (missing tool, timeout, malformed output)
// degrades to an unsuccessful empty result and never aborts note processing.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Request configures one extraction call.
type Request struct {
	Languages           []string // ordered locale codes, e.g. ["en-US", "de-DE"]
	ConfidenceThreshold float64  // 0..1
}

// Result is the collaborator's response. Success false with empty Text is the
// degraded "no text extracted" outcome.
type Result struct {
	Success          bool     `json:"success"`
	Text             string   `json:"text"`
	Confidence       float64  `json:"confidence"`
	Errors           []string `json:"errors,omitempty"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
}

// Extractor extracts text from page image bytes. Implementations never return
// an error: failure is expressed through Result.
type Extractor interface {
	Extract(ctx context.Context, image []byte, req Request) Result
}

// Disabled is the extractor used when no OCR command is configured.
type Disabled struct{}

// Extract always returns the degraded empty result.
func (Disabled) Extract(_ context.Context, _ []byte, _ Request) Result {
	return Result{Success: false}
}

// Command shells out to a configured external binary. The image is piped to
// stdin; the tool prints a JSON object {text, confidence, errors} to stdout.
type Command struct {
	Bin     string
	Timeout time.Duration
}

// toolOutput is the JSON contract of the external binary.
type toolOutput struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Errors     []string `json:"errors,omitempty"`
}

// Extract runs the external tool once. Results below the request's confidence
// threshold degrade to unsuccessful.
func (c *Command) Extract(ctx context.Context, image []byte, req Request) Result {
	start := time.Now()
	fail := func(msg string) Result {
		return Result{
			Success:          false,
			Errors:           []string{msg},
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
	}

	if c.Bin == "" {
		return fail("ocr: no extraction command configured")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"--languages", strings.Join(req.Languages, ","),
		"--confidence-threshold", strconv.FormatFloat(req.ConfidenceThreshold, 'f', 2, 64),
	}
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Stdin = bytes.NewReader(image)

	out, err := cmd.Output()
	if err != nil {
		return fail(fmt.Sprintf("ocr: %s: %v", c.Bin, err))
	}

	var parsed toolOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return fail(fmt.Sprintf("ocr: malformed output: %v", err))
	}

	res := Result{
		Success:          true,
		Text:             parsed.Text,
		Confidence:       parsed.Confidence,
		Errors:           parsed.Errors,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if parsed.Confidence < req.ConfidenceThreshold {
		res.Success = false
		res.Text = ""
	}
	return res
}
