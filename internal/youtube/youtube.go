// Package youtube downloads video transcripts from public caption tracks.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/agentcrew/internal/fetch"
)

// ErrNoTranscript is returned when a video exposes no usable caption track.
var ErrNoTranscript = errors.New("youtube: no transcript available")

// DefaultWatchURL is the watch page prefix; the video id is appended.
const DefaultWatchURL = "https://www.youtube.com/watch?v="

const playerResponseMarker = "ytInitialPlayerResponse = "

// VideoID returns the value of the v= parameter up to the next '&'.
func VideoID(videoURL string) (string, error) {
	i := strings.Index(videoURL, "v=")
	if i < 0 {
		return "", fmt.Errorf("no video id in %q", videoURL)
	}
	id := videoURL[i+2:]
	if j := strings.IndexByte(id, '&'); j >= 0 {
		id = id[:j]
	}
	if id == "" {
		return "", fmt.Errorf("empty video id in %q", videoURL)
	}
	return id, nil
}

// Client fetches transcripts through the watch page and timedtext endpoint.
type Client struct {
	Fetcher fetch.Getter
	// WatchURL defaults to DefaultWatchURL.
	WatchURL string
	// Languages in preference order. Defaults to English.
	Languages []string
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" marks auto-generated captions
}

type playerResponse struct {
	Captions *struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// Transcript returns the caption text of the video at videoURL with segments
// joined by spaces.
func (c *Client) Transcript(ctx context.Context, videoURL string) (string, error) {
	id, err := VideoID(videoURL)
	if err != nil {
		return "", err
	}
	watch := c.WatchURL
	if watch == "" {
		watch = DefaultWatchURL
	}
	page, err := c.Fetcher.Get(ctx, watch+id)
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}
	tracks, err := captionTracks(page.Body)
	if err != nil {
		return "", err
	}
	track, ok := pickTrack(tracks, c.languages())
	if !ok {
		return "", ErrNoTranscript
	}
	log.Debug().Str("video", id).Str("lang", track.LanguageCode).Str("kind", track.Kind).Msg("caption track selected")

	tt, err := c.Fetcher.Get(ctx, track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("timedtext: %w", err)
	}
	return parseTimedText(tt.Body)
}

func (c *Client) languages() []string {
	if len(c.Languages) == 0 {
		return []string{"en"}
	}
	return c.Languages
}

func captionTracks(page []byte) ([]captionTrack, error) {
	idx := bytes.Index(page, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("youtube: player response not found in watch page")
	}
	raw := objectPrefix(page[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, errors.New("youtube: unterminated player response")
	}
	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("youtube: decode player response: %w", err)
	}
	if pr.Captions == nil || len(pr.Captions.Renderer.CaptionTracks) == 0 {
		return nil, ErrNoTranscript
	}
	return pr.Captions.Renderer.CaptionTracks, nil
}

// objectPrefix returns the leading balanced JSON object of b.
func objectPrefix(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, ch := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// pickTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then the first. Tracks that need
// a browser proof-of-origin token are skipped.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !strings.Contains(t.BaseURL, "&exp=xpe") {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

func parseTimedText(body []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("youtube: parse timedtext: %w", err)
	}
	parts := make([]string, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		// Caption text is entity-escaped a second time inside the XML.
		text := strings.Join(strings.Fields(html.UnescapeString(l.Text)), " ")
		if text != "" {
			parts = append(parts, norm.NFC.String(text))
		}
	}
	if len(parts) == 0 {
		return "", ErrNoTranscript
	}
	return strings.Join(parts, " "), nil
}
