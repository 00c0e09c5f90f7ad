package review

import (
	"fmt"
	"strings"

	"github.com/user/photosort/internal/immich"
)

const (
	unknown         = immich.UnknownCamera
	defaultDuration = "0:00:00.00000"
)

// Summary is the display form of an asset sent to front-ends.
type Summary struct {
	ID       string  `json:"id" yaml:"id"`
	Type     string  `json:"type" yaml:"type"`
	Duration string  `json:"duration" yaml:"duration"`
	ThumbURL string  `json:"thumb_url" yaml:"thumb_url"`
	ImageURL string  `json:"image_url" yaml:"image_url"`
	VideoURL *string `json:"video_url" yaml:"video_url,omitempty"`
	Meta     Meta    `json:"meta" yaml:"meta"`
}

// Meta holds human-readable EXIF details. Missing values render as "--".
type Meta struct {
	Filename string `json:"filename" yaml:"filename"`
	Date     string `json:"date" yaml:"date"`
	Time     string `json:"time" yaml:"time"`
	Size     string `json:"size" yaml:"size"`
	Dims     string `json:"dims" yaml:"dims"`
	Camera   string `json:"camera" yaml:"camera"`
	Lens     string `json:"lens" yaml:"lens"`
	ISO      string `json:"iso" yaml:"iso"`
	Aperture string `json:"aperture" yaml:"aperture"`
	Shutter  string `json:"shutter" yaml:"shutter"`
	Focal    string `json:"focal" yaml:"focal"`
	Location string `json:"location" yaml:"location"`
}

// IsVideo reports whether the summary describes a video.
func (s Summary) IsVideo() bool { return s.Type == string(immich.AssetTypeVideo) }

// ProxyURL returns the proxied media path for an asset rendition.
func ProxyURL(id string, size immich.MediaSize) string {
	return "/proxy/" + id + "/" + string(size)
}

// Summarize converts a backend asset into its display form.
func Summarize(a immich.Asset) Summary {
	s := Summary{
		ID:       a.ID,
		Type:     orDefault(string(a.Type), string(immich.AssetTypeImage)),
		Duration: orDefault(a.Duration, defaultDuration),
		ThumbURL: ProxyURL(a.ID, immich.SizeThumbnail),
		ImageURL: ProxyURL(a.ID, immich.SizeOriginal),
		Meta:     summarizeMeta(a),
	}
	if a.Type == immich.AssetTypeVideo {
		video := ProxyURL(a.ID, immich.SizeOriginal)
		s.VideoURL = &video
	}
	return s
}

func summarizeMeta(a immich.Asset) Meta {
	m := Meta{
		Filename: orDefault(a.OriginalFileName, unknown),
		Date:     unknown,
		Time:     unknown,
		Size:     unknown,
		Dims:     unknown,
		Camera:   unknown,
		Lens:     unknown,
		ISO:      unknown,
		Aperture: unknown,
		Shutter:  unknown,
		Focal:    unknown,
		Location: unknown,
	}
	if ts := a.FileCreatedAt; ts != "" {
		if len(ts) >= 10 {
			m.Date = ts[:10]
		}
		if len(ts) >= 16 {
			m.Time = ts[11:16]
		}
	}

	exif := a.ExifInfo
	if exif == nil {
		return m
	}
	if exif.FileSizeInByte > 0 {
		m.Size = fmt.Sprintf("%.1f MB", float64(exif.FileSizeInByte)/1024/1024)
	}
	if exif.ExifImageWidth > 0 {
		height := unknown
		if exif.ExifImageHeight > 0 {
			height = exif.ExifImageHeight.String()
		}
		m.Dims = exif.ExifImageWidth.String() + "x" + height
	}
	m.Camera = orDefault(exif.Model, unknown)
	m.Lens = orDefault(exif.LensModel, unknown)
	if exif.ISO > 0 {
		m.ISO = exif.ISO.String()
	}
	if exif.FNumber > 0 {
		m.Aperture = exif.FNumber.String()
	}
	m.Shutter = orDefault(exif.ExposureTime, unknown)
	if exif.FocalLength > 0 {
		m.Focal = exif.FocalLength.String() + "mm"
	}
	for _, place := range []string{exif.City, exif.State, exif.Country} {
		if place = strings.TrimSpace(place); place != "" {
			m.Location = place
			break
		}
	}
	return m
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
