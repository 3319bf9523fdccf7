// Package qr turns pass tokens into QR code images and back.  Everything
// here runs on the scanning device; decoding a code never redeems it.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // uploaded photos are usually JPEG
	"image/png"
	"io"
	"strings"
	"unicode"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of encoded images.
const DefaultSize = 256

// ErrDecode is returned when an image holds no readable QR code or the code
// does not carry a token string.
var ErrDecode = errors.New("qr decode failed")

// Encode renders token as a PNG QR code with medium error correction.  The
// output depends only on token and size.
func Encode(token string, size int) ([]byte, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("qr encode: empty token")
	}
	if size <= 0 {
		size = DefaultSize
	}
	code, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code.Image(size)); err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode recovers the token carried by the QR code in img.
func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	res, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: no qr code found: %v", ErrDecode, err)
	}
	token := strings.TrimSpace(res.GetText())
	if token == "" {
		return "", fmt.Errorf("%w: empty payload", ErrDecode)
	}
	for _, r := range token {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return "", fmt.Errorf("%w: payload is not a token string", ErrDecode)
		}
	}
	return token, nil
}

// DecodeReader reads a PNG or JPEG image from r and decodes it.
func DecodeReader(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("%w: unreadable image: %v", ErrDecode, err)
	}
	return Decode(img)
}
