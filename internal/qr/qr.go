// Package qr wraps the QR image renderer behind a small interface so the
// access service does not care how the image is produced.
package qr

import qrcode "github.com/skip2/go-qrcode"

// DefaultSize is the rendered image edge length in pixels.
const DefaultSize = 256

// Renderer produces a QR PNG for the given content.
type Renderer interface {
	RenderPNG(content string, size int) ([]byte, error)
}

type qrcodeRenderer struct{}

// NewRenderer returns the go-qrcode backed renderer.
func NewRenderer() Renderer {
	return qrcodeRenderer{}
}

func (qrcodeRenderer) RenderPNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
