package moderation

import "github.com/abadojack/whatlanggo"

// Language returns the ISO 639-1 code of the detected language, or "" when unreliable.
func Language(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
