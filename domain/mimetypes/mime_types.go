// Package mimetypes lists the media types accepted for image and voice messages.
package mimetypes

import (
	"mime"
	"strings"

	"github.com/samber/lo"
)

type MIME string

const (
	Unknown MIME = "unknown"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"

	AudioWAV  MIME = "audio/wav"
	AudioMPEG MIME = "audio/mpeg"
	AudioOGG  MIME = "audio/ogg"
	AudioMP4  MIME = "audio/mp4"
	AudioWebM MIME = "audio/webm"

	// Browsers record voice notes in video containers without a video track
	VideoWebM      MIME = "video/webm"
	VideoMP4       MIME = "video/mp4"
	ApplicationOGG MIME = "application/ogg"
)

var voiceContainers = []MIME{VideoWebM, VideoMP4, ApplicationOGG}

// Matches parses a detected media type, parameters included, and compares it to expected.
func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

func IsImage(detected string) bool {
	return strings.HasPrefix(base(detected), "image/")
}

func IsVoice(detected string) bool {
	mt := base(detected)
	return strings.HasPrefix(mt, "audio/") || lo.Contains(voiceContainers, MIME(mt))
}

func base(detected string) string {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return string(Unknown)
	}
	return mt
}
