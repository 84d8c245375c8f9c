package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Extractor is the AI surface the resume pipeline depends on.
type Extractor interface {
	ExtractResume(ctx context.Context, file []byte, mimeType string) (*ResumeData, error)
	GenerateSummary(ctx context.Context, data *ResumeData) (string, error)
	GenerateCoverLetter(ctx context.Context, data *ResumeData, jobDescription string) (string, error)
}

// Client calls the external generative-AI service. The service receives the
// raw file; no local text extraction is done for binary formats.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Input       string            `json:"input"`
	Attachments []chatAttachment  `json:"attachments,omitempty"`
}

type chatAttachment struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mime_type"`
}

type chatResponse struct {
	Output string `json:"output"`
}

const extractionPrompt = `Extract the resume in the attachment into a single JSON object with the keys personal_info {name, email, phone, location}, experience [{company, title, start_date, end_date, description}], education [{institution, degree, field, year}], skills {technical, soft}, certifications [{name, issuer, date}], projects [{name, description, technologies}], summary. Respond with ONLY the JSON object. No explanatory text, no backticks, no code fences.`

// ExtractResume sends the raw file to the AI service and parses the
// structured result. The result is validated against the resume schema before
// it is returned.
func (c *Client) ExtractResume(ctx context.Context, file []byte, mimeType string) (*ResumeData, error) {
	req := chatRequest{
		Input: extractionPrompt,
		Attachments: []chatAttachment{{
			Data:     base64.StdEncoding.EncodeToString(file),
			MimeType: mimeType,
		}},
	}

	output, err := c.chat(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := salvageJSON(output)
	if err != nil {
		return nil, err
	}

	if err := validateResumeJSON(raw); err != nil {
		return nil, err
	}

	var data ResumeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode extraction result: %w", err)
	}
	return &data, nil
}

// GenerateSummary asks for a short free-text summary of the structured result.
func (c *Client) GenerateSummary(ctx context.Context, data *ResumeData) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	output, err := c.chat(ctx, chatRequest{
		Input: "Write a 2-3 sentence professional summary of this candidate. Respond with plain text only.\n\n" + string(payload),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// GenerateCoverLetter produces a cover letter from the structured result and a
// job description.
func (c *Client) GenerateCoverLetter(ctx context.Context, data *ResumeData, jobDescription string) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	output, err := c.chat(ctx, chatRequest{
		Input: "Write a concise, professional cover letter for the candidate below, tailored to the job description. Respond with plain text only.\n\nCANDIDATE:\n" + string(payload) + "\n\nJOB DESCRIPTION:\n" + jobDescription,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// chat performs one request against the AI service with retry/backoff on
// transport failures.
func (c *Client) chat(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	resp, err := c.doPostWithRetry(ctx, "/v1/chat", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai service returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode ai response: %w", err)
	}
	return chatResp.Output, nil
}

func (c *Client) doPostWithRetry(ctx context.Context, path string, body []byte) (*http.Response, error) {
	attempts := 3
	var lastErr error
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := c.HTTP.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i < attempts-1 {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// salvageJSON extracts the outermost JSON object from model output. Models
// occasionally wrap the object in prose or code fences despite instructions.
func salvageJSON(s string) ([]byte, error) {
	trimmed := strings.TrimSpace(s)
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		sub := trimmed[start : end+1]
		if json.Valid([]byte(sub)) {
			return []byte(sub), nil
		}
	}
	return nil, fmt.Errorf("ai service returned non-json content")
}
