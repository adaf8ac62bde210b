package utils

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// GenerateReferralQRCode renders a member's referral link as a PNG QR
// code, returned as raw image bytes.
func GenerateReferralQRCode(referralCode string) ([]byte, error) {
	baseURL := os.Getenv("REFERRAL_BASE_URL")
	if baseURL == "" {
		baseURL = "https://souqly.com/referral"
	}
	content := fmt.Sprintf("%s?code=%s", baseURL, referralCode)

	qrCode, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}

	qrCode, err = barcode.Scale(qrCode, 300, 300)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qrCode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
