package immich

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UnknownCamera is the sentinel model for assets without camera metadata.
const UnknownCamera = "--"

// AssetType is the media kind reported by the backend.
type AssetType string

const (
	AssetTypeImage AssetType = "IMAGE"
	AssetTypeVideo AssetType = "VIDEO"
)

// Asset mirrors the subset of the backend asset record the sorter reads.
type Asset struct {
	ID               string    `json:"id"`
	Type             AssetType `json:"type"`
	OriginalFileName string    `json:"originalFileName"`
	FileCreatedAt    string    `json:"fileCreatedAt"`
	Duration         string    `json:"duration"`
	IsFavorite       bool      `json:"isFavorite"`
	IsArchived       bool      `json:"isArchived"`
	ExifInfo         *ExifInfo `json:"exifInfo,omitempty"`
}

// ExifInfo holds descriptive metadata extracted by the backend.
type ExifInfo struct {
	Make            string `json:"make"`
	Model           string `json:"model"`
	LensModel       string `json:"lensModel"`
	ExifImageWidth  Number `json:"exifImageWidth"`
	ExifImageHeight Number `json:"exifImageHeight"`
	FileSizeInByte  Number `json:"fileSizeInByte"`
	ISO             Number `json:"iso"`
	FNumber         Number `json:"fNumber"`
	ExposureTime    string `json:"exposureTime"`
	FocalLength     Number `json:"focalLength"`
	City            string `json:"city"`
	State           string `json:"state"`
	Country         string `json:"country"`
}

// CameraModel returns the EXIF camera model or UnknownCamera.
func (a Asset) CameraModel() string {
	if a.ExifInfo == nil {
		return UnknownCamera
	}
	model := strings.TrimSpace(a.ExifInfo.Model)
	if model == "" {
		return UnknownCamera
	}
	return model
}

// Dimensions returns the EXIF pixel size. ok is false when either side is missing.
func (a Asset) Dimensions() (width, height int, ok bool) {
	if a.ExifInfo == nil {
		return 0, 0, false
	}
	w, h := int(a.ExifInfo.ExifImageWidth), int(a.ExifInfo.ExifImageHeight)
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// Number decodes a JSON number that the backend may also send as a numeric
// string or null. Anything unparseable decodes as zero.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// String formats the number without a trailing fraction when it is integral.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}
