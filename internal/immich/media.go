package immich

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MediaSize selects the rendition served by the media endpoint.
type MediaSize string

const (
	SizeThumbnail MediaSize = "thumbnail"
	SizeOriginal  MediaSize = "original"
)

// ErrInvalidSize is returned for sizes other than thumbnail and original.
var ErrInvalidSize = errors.New("invalid media size")

// ParseMediaSize validates a raw size name.
func ParseMediaSize(raw string) (MediaSize, error) {
	switch s := MediaSize(strings.ToLower(strings.TrimSpace(raw))); s {
	case SizeThumbnail, SizeOriginal:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSize, raw)
	}
}

// MediaBlob is binary asset content.
type MediaBlob struct {
	ContentType string
	Data        []byte
}

// Media downloads the thumbnail or original of an asset.
func (c *Client) Media(ctx context.Context, id string, size MediaSize) (*MediaBlob, error) {
	if size != SizeThumbnail && size != SizeOriginal {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSize, size)
	}
	resp, err := c.transport.FetchMedia(ctx, "/assets/"+url.PathEscape(id)+"/"+string(size))
	if err != nil {
		return nil, fmt.Errorf("fetch %s of %s: %w", size, id, err)
	}
	return &MediaBlob{ContentType: mediaType(resp.ContentType, size), Data: resp.Body}, nil
}

func mediaType(contentType string, size MediaSize) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return "image/jpeg"
	}
	if size == SizeOriginal && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "video/") {
		return "video/mp4"
	}
	return ct
}
