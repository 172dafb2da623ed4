package timeline

import (
	"net/url"
	"path"
	"strings"
)

// MaterialKind classifies an attached URL for display.
type MaterialKind string

const (
	MaterialVideo MaterialKind = "video"
	MaterialPDF   MaterialKind = "pdf"
	MaterialImage MaterialKind = "image"
	MaterialLink  MaterialKind = "link"
)

var (
	videoHosts      = []string{"youtube.com", "youtu.be", "vimeo.com"}
	videoExtensions = []string{".mp4", ".mov", ".webm", ".m4v"}
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}
)

// ClassifyMaterial inspects rawURL only: video hosts first, then video, PDF and
// image extensions on the path, otherwise a plain link.
func ClassifyMaterial(rawURL string) MaterialKind {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	host, p := splitURL(lower)

	for _, h := range videoHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return MaterialVideo
		}
	}

	ext := path.Ext(p)
	switch {
	case containsString(videoExtensions, ext):
		return MaterialVideo
	case ext == ".pdf":
		return MaterialPDF
	case containsString(imageExtensions, ext):
		return MaterialImage
	}
	return MaterialLink
}

// Icon returns the glyph shown next to a material of this kind.
func (k MaterialKind) Icon() string {
	switch k {
	case MaterialVideo:
		return "🎬"
	case MaterialPDF:
		return "📄"
	case MaterialImage:
		return "🖼️"
	default:
		return "🔗"
	}
}

// Label returns the Japanese display label for the kind.
func (k MaterialKind) Label() string {
	switch k {
	case MaterialVideo:
		return "動画"
	case MaterialPDF:
		return "PDF"
	case MaterialImage:
		return "画像"
	default:
		return "リンク"
	}
}

func splitURL(lower string) (host, p string) {
	if u, err := url.Parse(lower); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Hostname(), "www."), u.Path
	}
	// Scheme-less input such as "youtube.com/watch?v=x".
	trimmed := lower
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	host = trimmed
	if i := strings.Index(trimmed, "/"); i >= 0 {
		host = trimmed[:i]
	}
	return strings.TrimPrefix(host, "www."), trimmed
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
