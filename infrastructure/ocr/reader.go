package ocr

import (
	"context"
	"fmt"
	"image"
)

// Reader adapts a Client to the detection engine's text reader interface.
// It returns the extracted text; an unhealthy backend yields an error so the
// condition check can surface it instead of silently reporting no match.
type Reader struct {
	client Client
}

// NewReader creates a Reader backed by the given client.
func NewReader(client Client) *Reader {
	return &Reader{client: client}
}

// ExtractText runs OCR on the given image and returns the recognized text.
func (r *Reader) ExtractText(ctx context.Context, img image.Image) (string, error) {
	result, err := r.client.ExtractTextFromImage(ctx, img)
	if err != nil {
		return "", fmt.Errorf("ocr extraction: %w", err)
	}
	return result.Text, nil
}
