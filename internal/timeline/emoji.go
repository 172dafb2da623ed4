package timeline

import "strings"

// DefaultEmoji is used when no keyword matches a title.
const DefaultEmoji = "📌"

type emojiRule struct {
	keyword string
	glyph   string
}

// emojiRules is scanned in order; the first keyword found in the title wins.
var emojiRules = []emojiRule{
	{"ゲネプロ", "🎼"},
	{"リハ", "🎻"},
	{"rehearsal", "🎻"},
	{"サウンドチェック", "🔊"},
	{"soundcheck", "🔊"},
	{"チューニング", "🎵"},
	{"本番", "🎤"},
	{"開演", "🎤"},
	{"concert", "🎤"},
	{"開場", "🚪"},
	{"open", "🚪"},
	{"集合", "📍"},
	{"受付", "📍"},
	{"meeting", "📍"},
	{"打ち合わせ", "💬"},
	{"ミーティング", "💬"},
	{"昼食", "🍱"},
	{"夕食", "🍱"},
	{"弁当", "🍱"},
	{"lunch", "🍱"},
	{"dinner", "🍱"},
	{"休憩", "☕"},
	{"break", "☕"},
	{"移動", "🚌"},
	{"バス", "🚌"},
	{"搬入", "📦"},
	{"搬出", "📦"},
	{"撤収", "🧹"},
	{"片付", "🧹"},
	{"着替", "👔"},
	{"メイク", "💄"},
	{"撮影", "📷"},
	{"写真", "📷"},
	{"解散", "👋"},
	{"終演", "🎉"},
}

var presetEmoji = func() map[string]struct{} {
	set := map[string]struct{}{DefaultEmoji: {}}
	for _, rule := range emojiRules {
		set[rule.glyph] = struct{}{}
	}
	return set
}()

// DetectEmoji picks a glyph for title from the keyword table.
func DetectEmoji(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range emojiRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.glyph
		}
	}
	return DefaultEmoji
}

// IsPresetEmoji reports whether glyph is one the detector can produce.
func IsPresetEmoji(glyph string) bool {
	_, ok := presetEmoji[strings.TrimSpace(glyph)]
	return ok
}

// SuggestEmoji returns the detected glyph for title unless current holds a
// custom glyph, which always wins.
func SuggestEmoji(title, current string) string {
	current = strings.TrimSpace(current)
	if current == "" || IsPresetEmoji(current) {
		return DetectEmoji(title)
	}
	return current
}

// PresetEmoji lists the selectable glyphs in table order without duplicates.
func PresetEmoji() []string {
	seen := map[string]struct{}{}
	out := []string{DefaultEmoji}
	seen[DefaultEmoji] = struct{}{}
	for _, rule := range emojiRules {
		if _, ok := seen[rule.glyph]; ok {
			continue
		}
		seen[rule.glyph] = struct{}{}
		out = append(out, rule.glyph)
	}
	return out
}
