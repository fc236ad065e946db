package quizgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"time"

	"github.com/etraincon/learning-service/internal/config"
)

var (
	// ErrUpstream covers transport failures and non-2xx replies.
	ErrUpstream = errors.New("ML API request failed")
	// ErrInvalidResponse is returned when the reply lacks either question list.
	ErrInvalidResponse = errors.New("invalid quiz data from ML API")
)

const maxResponseBytes = 8 << 20

// MCQ is a generated multiple-choice question.
type MCQ struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *string  `json:"correct_answer"`
	Explanation   *string  `json:"explanation"`
}

// OpenQ is a generated open-ended question with its model answer.
type OpenQ struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer"`
}

type Result struct {
	MultipleChoice []MCQ
	OpenEnded      []OpenQ
}

// File is the course document sent to the generator.
type File struct {
	Name    string
	Content io.Reader
}

// Client calls the quiz generation API.
type Client struct {
	httpClient   *http.Client
	url          string
	numMCQ       int
	numOpenEnded int
	modelName    string
	logger       *slog.Logger
}

func NewClient(cfg config.QuizAPIConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		url:          cfg.URL,
		numMCQ:       cfg.NumMCQ,
		numOpenEnded: cfg.NumOpenEnded,
		modelName:    cfg.ModelName,
		logger:       logger,
	}
}

// Generate uploads the file and returns the generated questions.
func (c *Client) Generate(ctx context.Context, file File) (*Result, error) {
	body, contentType, err := c.encodeForm(file)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build ML API request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}

	c.logger.InfoContext(ctx, "ML API responded",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	return decodeResult(raw)
}

func (c *Client) encodeForm(file File) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf_file"; filename=%q`, filepath.Base(file.Name)))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create pdf part: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, "", fmt.Errorf("failed to read course file: %w", err)
	}

	fields := []struct{ name, value string }{
		{"num_mcq", strconv.Itoa(c.numMCQ)},
		{"num_open_ended", strconv.Itoa(c.numOpenEnded)},
		{"model_name", c.modelName},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// decodeResult requires both lists to be present. A list that is present but not an
// array counts as empty.
func decodeResult(raw []byte) (*Result, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	mcqRaw, okMCQ := envelope["multiple_choice"]
	openRaw, okOpen := envelope["open_ended"]
	if !okMCQ || !okOpen || isNull(mcqRaw) || isNull(openRaw) {
		return nil, ErrInvalidResponse
	}

	res := &Result{}
	if isArray(mcqRaw) {
		if err := json.Unmarshal(mcqRaw, &res.MultipleChoice); err != nil {
			return nil, fmt.Errorf("%w: multiple_choice: %v", ErrInvalidResponse, err)
		}
	}
	if isArray(openRaw) {
		if err := json.Unmarshal(openRaw, &res.OpenEnded); err != nil {
			return nil, fmt.Errorf("%w: open_ended: %v", ErrInvalidResponse, err)
		}
	}
	return res, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
