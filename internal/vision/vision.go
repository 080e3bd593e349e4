// Package vision implements waste-image classification against an
// OpenAI-compatible multimodal endpoint. The model is asked for a strict
// JSON verdict which is parsed into an Analysis.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ecobot-id/ecobot/internal/config"
)

// ErrNotWasteImage marks inputs that are skipped before classification,
// such as stickers.
var ErrNotWasteImage = errors.New("input is not a waste photo")

// Known classification labels.
const (
	WasteOrganic      = "ORGANIK"
	WasteInorganic    = "ANORGANIK"
	WasteHazardous    = "B3"
	WasteUnidentified = "TIDAK_TERIDENTIFIKASI"
)

// Analysis is one classification verdict.
type Analysis struct {
	WasteType   string  `json:"waste_type"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
	Tips        string  `json:"tips"`
}

// Client classifies waste images.
type Client struct {
	client *openai.Client
	logger *slog.Logger
	model  string
}

// NewClient creates a vision client for the configured endpoint.
func NewClient(cfg config.VisionConfig, logger *slog.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.Token)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger.With("component", "vision_client"),
		model:  cfg.Model,
	}
}

const classifyPrompt = `Klasifikasikan sampah pada foto ini ke salah satu kategori: ORGANIK, ANORGANIK, B3, atau TIDAK_TERIDENTIFIKASI.
Balas HANYA dengan JSON berformat:
{"waste_type": "...", "confidence": 0.0, "description": "...", "tips": "..."}
description menjelaskan apa yang terlihat, tips berisi saran pengelolaan singkat dalam bahasa Indonesia.`

// AnalyzeWasteImage classifies one image. Stickers (animated GIFs, very
// small files) are rejected with ErrNotWasteImage before any network call.
func (c *Client) AnalyzeWasteImage(ctx context.Context, image []byte) (*Analysis, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image data")
	}
	if isSticker(image) {
		return nil, ErrNotWasteImage
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: classifyPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: encodeDataURL(image),
						},
					},
				},
			},
		},
		MaxTokens:   400,
		Temperature: 0.2,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Vision classification call failed", "error", err)
		return nil, fmt.Errorf("vision classification failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("vision response contained no choices")
	}

	analysis, err := parseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to parse vision verdict", "error", err)
		return nil, err
	}

	c.logger.DebugContext(ctx, "Image classified",
		"waste_type", analysis.WasteType, "confidence", analysis.Confidence)
	return analysis, nil
}

// parseAnalysis decodes the model's JSON verdict, tolerating markdown code
// fences around the payload.
func parseAnalysis(content string) (*Analysis, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &analysis); err != nil {
		return nil, fmt.Errorf("unexpected vision verdict shape: %w", err)
	}

	if analysis.WasteType == "" {
		analysis.WasteType = WasteUnidentified
	}
	return &analysis, nil
}

// isSticker flags likely stickers: GIFs and very small files.
func isSticker(image []byte) bool {
	if bytes.HasPrefix(image, []byte("GIF")) {
		return true
	}
	return len(image) < 100*1024
}

// encodeDataURL converts image bytes to a base64 data URL with a sniffed
// MIME type.
func encodeDataURL(image []byte) string {
	mimeType := "image/jpeg"
	switch {
	case bytes.HasPrefix(image, []byte("\x89PNG")):
		mimeType = "image/png"
	case bytes.HasPrefix(image, []byte("\xff\xd8\xff")):
		mimeType = "image/jpeg"
	case bytes.HasPrefix(image, []byte("GIF")):
		mimeType = "image/gif"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
}
