package twofa

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const DefaultQRSize = 256

// QRRenderer turns a provisioning URI into a scannable image.
type QRRenderer interface {
	RenderQR(text string) ([]byte, error)
}

// PNGQRRenderer renders square PNG QR codes.
type PNGQRRenderer struct {
	Size int
}

func NewPNGQRRenderer(size int) PNGQRRenderer {
	if size <= 0 {
		size = DefaultQRSize
	}
	return PNGQRRenderer{Size: size}
}

func (r PNGQRRenderer) RenderQR(text string) ([]byte, error) {
	code, err := qr.Encode(text, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	size := r.Size
	if size <= 0 {
		size = DefaultQRSize
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to scale qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
