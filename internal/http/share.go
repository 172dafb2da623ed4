package http

import (
	"encoding/base64"
	"html/template"
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// shareURL is the absolute public URL of the viewer for filter. baseURL wins
// over the request host when configured, since proxies often rewrite Host.
func shareURL(baseURL string, r *http.Request, slug string, filter []string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + withFilter(eventPath(slug), filter)
}

func qrPNG(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, qrSize)
}

// qrDataURI embeds the QR code so the print page needs no second request.
func qrDataURI(content string) (template.URL, error) {
	png, err := qrPNG(content)
	if err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}
