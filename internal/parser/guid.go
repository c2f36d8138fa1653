package parser

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// deriveGUID picks the first non-empty of nativeID, link+pubDate, link, or
// title. If all four are empty, a stable guid is synthesized from the
// feed's url and the item's position, so items without any of the usual
// identifying fields don't silently collide under an empty guid.
func deriveGUID(nativeID, link, pubDateRaw, title, feedURL string, position int) string {
	if strings.TrimSpace(nativeID) != "" {
		return nativeID
	}
	if strings.TrimSpace(link) != "" && strings.TrimSpace(pubDateRaw) != "" {
		return link + pubDateRaw
	}
	if strings.TrimSpace(link) != "" {
		return link
	}
	if strings.TrimSpace(title) != "" {
		return title
	}
	return synthesizeGUID(feedURL, position)
}

// synthesizeGUID builds a stable, deterministic guid from the feed's url
// and the item's ordinal position when no other source gives us one.
func synthesizeGUID(feedURL string, position int) string {
	h := sha1.New()
	h.Write([]byte(feedURL))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(position)))
	return "sha1:" + hex.EncodeToString(h.Sum(nil))
}
