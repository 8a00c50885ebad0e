package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/logging"
)

// Client talks to the Gemini API. It implements Generator.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *logging.Logger
}

var _ Generator = (*Client)(nil)

// NewClient creates a Client for the given API key and model. If model is
// empty, DefaultModel is used.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration, log *logging.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("API key must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client:  gc,
		model:   model,
		timeout: timeout,
		log:     log,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate builds a generation request from the prompt and reference
// sections and returns the produced image bytes.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	parts := []*genai.Part{genai.NewPartFromText(generateInstruction(req))}
	for _, ref := range req.References {
		if len(ref.Image) == 0 {
			continue
		}
		parts = append(parts,
			genai.NewPartFromText(ref.Section+":"),
			genai.NewPartFromBytes(ref.Image, mimeOrPNG(ref.MimeType)),
		)
	}

	var seed *int32
	if req.Seed != nil {
		seed = genai.Ptr(int32(*req.Seed))
	}
	return c.generate(ctx, parts, seed)
}

// Edit builds an edit request over the base image. In masked mode the mask
// PNG accompanies the base image; in global mode it is omitted.
func (c *Client) Edit(ctx context.Context, req EditRequest) ([]byte, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(editInstruction(req)),
		genai.NewPartFromText("Base Image:"),
		genai.NewPartFromBytes(req.BaseImage, "image/png"),
	}
	if !req.Global && len(req.Mask) > 0 {
		parts = append(parts,
			genai.NewPartFromText("Mask Image:"),
			genai.NewPartFromBytes(req.Mask, "image/png"),
		)
	}
	for _, ref := range req.References {
		if len(ref.Image) == 0 {
			continue
		}
		parts = append(parts,
			genai.NewPartFromText(ref.Section+" reference:"),
			genai.NewPartFromBytes(ref.Image, mimeOrPNG(ref.MimeType)),
		)
	}
	return c.generate(ctx, parts, nil)
}

// Enhance builds an enhancement request for the selected variant.
func (c *Client) Enhance(ctx context.Context, req EnhanceRequest) ([]byte, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(req.BaseImage, "image/png"),
		genai.NewPartFromText(enhanceInstruction(req.Variant)),
	}
	return c.generate(ctx, parts, nil)
}

// ReplaceBackground builds a background replacement request.
func (c *Client) ReplaceBackground(ctx context.Context, req BackgroundRequest) ([]byte, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(backgroundInstruction(req)),
		genai.NewPartFromText("Base Image:"),
		genai.NewPartFromBytes(req.BaseImage, "image/png"),
	}
	if len(req.Background) > 0 {
		parts = append(parts,
			genai.NewPartFromText("Background Image:"),
			genai.NewPartFromBytes(req.Background, mimeOrPNG(req.BackgroundMime)),
		)
	}
	return c.generate(ctx, parts, nil)
}

// Outpaint builds a canvas expansion request.
func (c *Client) Outpaint(ctx context.Context, req OutpaintRequest) ([]byte, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(outpaintInstruction(req)),
		genai.NewPartFromBytes(req.BaseImage, "image/png"),
	}
	return c.generate(ctx, parts, nil)
}

// generate performs the round trip and extracts the image from the response.
func (c *Client) generate(ctx context.Context, parts []*genai.Part, seed *int32) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	if seed != nil {
		cfg.Seed = seed
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, c.classifyError(err)
	}
	if c.log != nil {
		c.log.Debug("generation round trip took %s", time.Since(start).Round(time.Millisecond))
	}

	return extractImage(resp)
}

// extractImage returns the first inline image part of the response. When no
// image is present, the block or finish reason is surfaced if the API
// reported one.
func extractImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, resp.Candidates[0].FinishReason)
	}
	return nil, ErrNoImage
}

// classifyError converts transport errors into user-reportable ones.
func (c *Client) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", ErrRequestFailed)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}

func mimeOrPNG(mime string) string {
	if mime == "" {
		return "image/png"
	}
	return mime
}
