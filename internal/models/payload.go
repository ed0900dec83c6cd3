package models

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Payload is the type-specific body of a message. The concrete variant is
// determined by Message.Type; DecodePayload and ValidatePayload keep the
// mapping exhaustive.
type Payload interface {
	isPayload()
	// Preview returns a short human-readable summary used for reply
	// quotes and conversation listings.
	Preview() string
}

// TextPayload backs type=text messages.
type TextPayload struct {
	Content string `json:"content"`
}

// MediaInfo carries metadata for media payloads.
type MediaInfo struct {
	Duration     int    `json:"duration,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
}

// MediaPayload backs image, video, audio, voice and file messages. The
// engine receives an already-uploaded content URL; it never stores bytes.
type MediaPayload struct {
	URL   string     `json:"url"`
	Media *MediaInfo `json:"media_info,omitempty"`
}

// GifPayload backs type=gif messages.
type GifPayload struct {
	URL string `json:"url"`
}

// StickerPayload backs type=sticker messages.
type StickerPayload struct {
	StickerID string `json:"sticker_id"`
	ImageURL  string `json:"image_url,omitempty"`
}

// TombstonePayload replaces the original payload of a message deleted for
// everyone. The sequence slot is retained.
type TombstonePayload struct{}

func (TextPayload) isPayload()      {}
func (MediaPayload) isPayload()     {}
func (GifPayload) isPayload()       {}
func (StickerPayload) isPayload()   {}
func (TombstonePayload) isPayload() {}

const previewLimit = 100

func (p TextPayload) Preview() string {
	if len(p.Content) <= previewLimit {
		return p.Content
	}
	// Back up to a rune boundary so the cut never produces invalid UTF-8.
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(p.Content[cut]) {
		cut--
	}
	return p.Content[:cut]
}

func (p MediaPayload) Preview() string   { return p.URL }
func (p GifPayload) Preview() string     { return p.URL }
func (p StickerPayload) Preview() string { return p.StickerID }
func (TombstonePayload) Preview() string { return "" }

func (TombstonePayload) MarshalJSON() ([]byte, error) {
	return []byte(`{"deleted":true}`), nil
}

// DecodePayload parses the raw payload object for the given message type.
// Unknown types are rejected.
func DecodePayload(t MessageType, raw json.RawMessage) (Payload, error) {
	switch t {
	case MessageText:
		var p TextPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case MessageImage, MessageVideo, MessageAudio, MessageVoice, MessageFile:
		var p MediaPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case MessageGif:
		var p GifPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case MessageSticker:
		var p StickerPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", t)
	}
}

// ValidatePayload checks that the payload variant matches the message type
// and carries its required fields.
func ValidatePayload(t MessageType, p Payload) error {
	switch t {
	case MessageText:
		tp, ok := p.(TextPayload)
		if !ok {
			return fmt.Errorf("text message requires a text payload")
		}
		if tp.Content == "" {
			return fmt.Errorf("text content must not be empty")
		}
	case MessageImage, MessageVideo, MessageAudio, MessageVoice, MessageFile:
		mp, ok := p.(MediaPayload)
		if !ok {
			return fmt.Errorf("%s message requires a media payload", t)
		}
		if mp.URL == "" {
			return fmt.Errorf("%s payload requires a url", t)
		}
	case MessageGif:
		gp, ok := p.(GifPayload)
		if !ok {
			return fmt.Errorf("gif message requires a gif payload")
		}
		if gp.URL == "" {
			return fmt.Errorf("gif payload requires a url")
		}
	case MessageSticker:
		sp, ok := p.(StickerPayload)
		if !ok {
			return fmt.Errorf("sticker message requires a sticker payload")
		}
		if sp.StickerID == "" {
			return fmt.Errorf("sticker payload requires a sticker_id")
		}
	default:
		return fmt.Errorf("unknown message type %q", t)
	}
	return nil
}
