package timeline

import "hash/fnv"

// EveryoneColor is the CSS class used for the sentinel target.
const EveryoneColor = "tag-neutral"

var tagPalette = []string{
	"tag-red",
	"tag-orange",
	"tag-amber",
	"tag-green",
	"tag-teal",
	"tag-cyan",
	"tag-blue",
	"tag-indigo",
	"tag-violet",
	"tag-pink",
	"tag-gray",
}

// TagColor maps a label to a stable CSS class.
func TagColor(label string) string {
	if IsEveryone(label) {
		return EveryoneColor
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return tagPalette[h.Sum32()%uint32(len(tagPalette))]
}
