package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spec-kit/faceauth-service/internal/domain"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

const (
	compareFacesPath       = "/face/compare-faces"
	probeField             = "image"
	referenceImageURLField = "referenceImageUrl"
)

var ErrComparisonFailed = apperrors.ErrComparisonFailed

type compareVerdict struct {
	Match      *bool    `json:"match"`
	Confidence *float64 `json:"confidence"`
}

type compareResponse struct {
	compareVerdict
	Data *compareVerdict `json:"data"`
}

// FaceComparer posts a probe image and a reference URL to the comparison service.
type FaceComparer struct {
	caller caller
}

func NewFaceComparer(opts Options) *FaceComparer {
	return &FaceComparer{caller: newCaller(opts, "compare-faces")}
}

// Compare returns the service verdict for one probe/reference pair.
func (c *FaceComparer) Compare(ctx context.Context, probePath, referenceURL string) (domain.Comparison, error) {
	payload, contentType, err := buildCompareForm(probePath, referenceURL)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("%w: %w", ErrComparisonFailed, err)
	}

	endpoint := c.caller.url(compareFacesPath)
	status, body, err := c.caller.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("%w: %w", ErrComparisonFailed, err)
	}
	if !isSuccess(status) {
		return domain.Comparison{}, fmt.Errorf("%w: %w", ErrComparisonFailed, apperrors.NewUpstreamError(status, upstreamMessage(body)))
	}

	var decoded compareResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.Comparison{}, fmt.Errorf("%w: decode response: %w", ErrComparisonFailed, err)
	}
	verdict := decoded.compareVerdict
	if verdict.Match == nil && decoded.Data != nil {
		verdict = *decoded.Data
	}
	if verdict.Match == nil || verdict.Confidence == nil {
		return domain.Comparison{}, fmt.Errorf("%w: response missing match or confidence", ErrComparisonFailed)
	}
	return domain.Comparison{Match: *verdict.Match, Confidence: *verdict.Confidence}, nil
}

func buildCompareForm(probePath, referenceURL string) ([]byte, string, error) {
	f, err := os.Open(probePath)
	if err != nil {
		return nil, "", fmt.Errorf("open probe image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(probeField, filepath.Base(probePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy probe image: %w", err)
	}
	if err := w.WriteField(referenceImageURLField, referenceURL); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
