package render

import (
	"encoding/base64"
	"fmt"

	qrc "github.com/skip2/go-qrcode"

	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// PNGRenderer renders QR codes as PNG images
type PNGRenderer struct {
	size  int
	level qrc.RecoveryLevel
}

// NewPNGRenderer creates a PNG renderer producing size x size pixel images
func NewPNGRenderer(size int) *PNGRenderer {
	if size <= 0 {
		size = 512
	}
	return &PNGRenderer{size: size, level: qrc.Medium}
}

// Render encodes the item's content as a QR PNG, returned as base64 image
// data correlated by the item's row number.
func (r *PNGRenderer) Render(item batch.Item) (batch.RenderedItem, error) {
	data, err := qrc.Encode(item.Content, r.level, r.size)
	if err != nil {
		return batch.RenderedItem{}, fmt.Errorf("failed to render QR for row %d: %w", item.Row, err)
	}
	return batch.RenderedItem{
		Row:       item.Row,
		Content:   item.Content,
		Label:     item.Label,
		ImageData: base64.StdEncoding.EncodeToString(data),
	}, nil
}
