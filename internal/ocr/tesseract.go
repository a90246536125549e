package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when a Recognizer has no language set.
const DefaultLanguage = "eng"

// ErrEmptyRegion is returned for a rectangle that does not overlap the image.
var ErrEmptyRegion = errors.New("region does not overlap the image")

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// BoundsOf converts a rectangle.
func BoundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Word is one recognized word.
type Word struct {
	Text string `json:"text"`
	// Confidence is between 0 and 1.
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`
}

// Block is the text recognized inside one requested rectangle.
type Block struct {
	Bounds Bounds `json:"bounds"`
	Text   string `json:"text"`
	Words  []Word `json:"words"`
}

// Result is the outcome of a Recognize call.
type Result struct {
	// FullText joins the block texts in request order, one block per line.
	FullText string  `json:"full_text"`
	Blocks   []Block `json:"blocks"`
}

// Recognizer runs Tesseract with a fixed language. The zero value uses
// English and the system tessdata location.
type Recognizer struct {
	Language       string
	TessdataPrefix string
}

func (r *Recognizer) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if r.TessdataPrefix != "" {
		client.SetTessdataPrefix(r.TessdataPrefix)
	}
	lang := r.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return client, nil
}

// Recognize reads the text of img. With no rects the whole image is one
// block; otherwise each rect is cropped and recognized in order.
func (r *Recognizer) Recognize(img image.Image, rects []image.Rectangle) (*Result, error) {
	if len(rects) == 0 {
		rects = []image.Rectangle{img.Bounds()}
	}

	client, err := r.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	res := &Result{Blocks: make([]Block, 0, len(rects))}
	texts := make([]string, 0, len(rects))
	for _, rect := range rects {
		block, err := recognizeRegion(client, img, rect)
		if err != nil {
			return nil, fmt.Errorf("region %v: %w", rect, err)
		}
		res.Blocks = append(res.Blocks, *block)
		texts = append(texts, block.Text)
	}
	res.FullText = strings.Join(texts, "\n")
	return res, nil
}

func recognizeRegion(client *gosseract.Client, img image.Image, rect image.Rectangle) (*Block, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, ErrEmptyRegion
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Crop(img, rect), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	block := &Block{
		Bounds: BoundsOf(rect),
		Text:   strings.TrimSpace(text),
		Words:  []Word{},
	}

	// Word boxes are optional; keep the text if they fail.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return block, nil
	}
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		block.Words = append(block.Words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Bounds:     BoundsOf(box.Box.Add(rect.Min)),
		})
	}
	return block, nil
}

// Blocks finds paragraph-level text areas with Tesseract's own layout
// analysis. It serves as a region source when no detection model is loaded.
func (r *Recognizer) Blocks(img image.Image, minConfidence float64) ([]image.Rectangle, error) {
	client, err := r.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to get text regions: %w", err)
	}

	offset := img.Bounds().Min
	rects := make([]image.Rectangle, 0, len(boxes))
	for _, box := range boxes {
		if box.Confidence/100.0 < minConfidence {
			continue
		}
		rects = append(rects, box.Box.Add(offset))
	}
	return rects, nil
}
