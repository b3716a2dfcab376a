package social

import (
	"regexp"
	"strings"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
)

var linkRegex = regexp.MustCompile(`https?://[^\s<>"]+`)

// LinkFacets returns a link facet for every http(s) URL in text. Indices are
// UTF-8 byte offsets, as the record schema requires.
func LinkFacets(text string) []*appbsky.RichtextFacet {
	var out []*appbsky.RichtextFacet
	for _, loc := range linkRegex.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		uri := strings.TrimRight(text[start:end], ".,;:!?)")
		end = start + len(uri)
		out = append(out, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{
				ByteStart: int64(start),
				ByteEnd:   int64(end),
			},
			Features: []*appbsky.RichtextFacet_Features_Elem{
				&appbsky.RichtextFacet_Features_Elem{
					RichtextFacet_Link: &appbsky.RichtextFacet_Link{
						LexiconTypeID: "app.bsky.richtext.facet#link",
						Uri:           uri,
					},
				},
			},
		})
	}
	return out
}
