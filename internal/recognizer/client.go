package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/crewpix/crewpix/internal/facematch"
)

const defaultRecognizerURL = "http://localhost:8000"

// Client calls the face extraction HTTP service.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client

	readyOnce sync.Once
	readyErr  error
}

// NewClient creates a new extraction client. dim is the expected descriptor
// dimension; detections with a different dimension are rejected.
func NewClient(baseURL string, dim int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultRecognizerURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: timeout},
	}
}

// faceDetection represents a single detected face on the wire
type faceDetection struct {
	FaceIndex int          `json:"face_index"`
	Dim       int          `json:"dim"`
	Embedding []float32    `json:"embedding"`
	BBox      []float64    `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64      `json:"det_score"`
	Landmarks [][2]float64 `json:"landmarks,omitempty"`
}

// faceResponse represents the response from the extraction endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Ready checks that the extraction backend is reachable and its model is
// loaded. The check runs once; later calls return the cached result.
func (c *Client) Ready(ctx context.Context) error {
	c.readyOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
		if err != nil {
			c.readyErr = fmt.Errorf("%w: %v", ErrNotReady, err)
			return
		}

		resp, err := c.client.Do(req)
		if err != nil {
			c.readyErr = fmt.Errorf("%w: %v", ErrNotReady, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.readyErr = fmt.Errorf("%w: health returned status %d", ErrNotReady, resp.StatusCode)
		}
	})
	return c.readyErr
}

// Extract detects faces in an image. An image with no faces returns an
// empty slice. Backend failures are wrapped in ErrExtractionFailed.
func (c *Client) Extract(ctx context.Context, imageData []byte) ([]facematch.Detection, error) {
	body, err := c.postMultipartImage(ctx, "/faces/extract", imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrExtractionFailed, err)
	}

	detections := make([]facematch.Detection, 0, len(faceResp.Faces))
	for _, face := range faceResp.Faces {
		if c.dim > 0 && face.Dim != c.dim {
			return nil, fmt.Errorf("%w: face %d has dim %d, expected %d",
				ErrExtractionFailed, face.FaceIndex, face.Dim, c.dim)
		}
		detections = append(detections, toDetection(face))
	}
	return detections, nil
}

// toDetection converts a wire detection to the matching core's form. The
// wire bbox is [x1, y1, x2, y2] corners; the core uses origin plus size.
func toDetection(face faceDetection) facematch.Detection {
	var bbox facematch.BBox
	if len(face.BBox) == 4 {
		bbox = facematch.BBox{
			X:      face.BBox[0],
			Y:      face.BBox[1],
			Width:  face.BBox[2] - face.BBox[0],
			Height: face.BBox[3] - face.BBox[1],
		}
	}

	landmarks := make([]facematch.Point, 0, len(face.Landmarks))
	for _, lm := range face.Landmarks {
		landmarks = append(landmarks, facematch.Point{X: lm[0], Y: lm[1]})
	}

	return facematch.Detection{
		BBox:       bbox,
		Descriptor: face.Embedding,
		Landmarks:  landmarks,
		DetScore:   face.DetScore,
	}
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	mimeType := detectMIMEType(imageData)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}

// Verify interface compliance.
var _ Extractor = (*Client)(nil)
