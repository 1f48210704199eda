package vision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

const extractionPrompt = "Analyze the image and return JSON only. " +
	"The image may be a photo or a line drawing. " +
	"Always set part_hint to Gear/Bracket/Plate/Motor/RobotArm/Unknown and part_hint_confidence (0-1). " +
	"If you cannot extract geometry from a photo, still set part_hint and leave geometry empty. " +
	"Outline is the outer contour of the part when available. " +
	"If the outline is curved, set outline.type to spline and sample enough points for a smooth curve (>=32). " +
	"If mostly straight edges, set outline.type to polygon. " +
	"Holes are circular features with center_px [x,y] and radius_px. " +
	"Bend lines are long straight lines inside the outline with line_px [[x1,y1],[x2,y2]]. " +
	"Use pixel coordinates. Confidence is 0-1."

// Extractor produces an observation from an image.
type Extractor interface {
	Extract(ctx context.Context, imagePath string) (Observation, error)
}

// GeminiExtractor implements Extractor using Gemini multimodal generation.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates an extractor bound to one model.
func NewGeminiExtractor(ctx context.Context, apiKey string, modelName string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiExtractor{client: client, model: modelName}, nil
}

// Extract sends the image with the extraction prompt and decodes the JSON
// reply. A hint-only reply (no geometry) is a valid observation.
func (g *GeminiExtractor) Extract(ctx context.Context, imagePath string) (Observation, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return Observation{}, fmt.Errorf("read image: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(extractionPrompt),
			genai.NewPartFromBytes(data, imageMIME(imagePath)),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Observation{}, fmt.Errorf("gemini vision: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Observation{}, fmt.Errorf("gemini vision: empty response")
	}

	obs, err := Decode([]byte(stripCodeFence(text)))
	if err != nil {
		return Observation{}, err
	}
	if obs.PartHint == "" {
		obs.PartHint = "Unknown"
		c := 0.2
		obs.PartHintConfidence = &c
	}
	return obs, nil
}

func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models emit even when asked for raw JSON.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
