package immich

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// payloadKind is the top-level JSON shape of a backend reply.
type payloadKind int

const (
	payloadUnknown payloadKind = iota
	payloadObject
	payloadList
)

func kindOf(data []byte) payloadKind {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return payloadUnknown
	}
	switch data[0] {
	case '{':
		return payloadObject
	case '[':
		return payloadList
	default:
		return payloadUnknown
	}
}

// decodeRandom normalizes the random endpoint's reply, which is either one
// asset object or a list of them. Only the first entry is used, so only it
// must carry an id; an empty list yields no assets.
func decodeRandom(body []byte) ([]Asset, error) {
	switch kindOf(body) {
	case payloadObject:
		asset, ok := decodeAsset(body)
		if !ok {
			return nil, fmt.Errorf("random asset: %w: missing id", ErrMalformedResponse)
		}
		return []Asset{asset}, nil
	case payloadList:
		var raws []json.RawMessage
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, fmt.Errorf("random asset: %w: %v", ErrMalformedResponse, err)
		}
		if len(raws) == 0 {
			return []Asset{}, nil
		}
		asset, ok := decodeAsset(raws[0])
		if !ok {
			return nil, fmt.Errorf("random asset[0]: %w: missing id", ErrMalformedResponse)
		}
		return []Asset{asset}, nil
	default:
		return nil, fmt.Errorf("random asset: %w: expected object or list", ErrMalformedResponse)
	}
}

// decodeAsset accepts an object whose id sits under "id" or "assetId".
func decodeAsset(raw json.RawMessage) (Asset, bool) {
	if kindOf(raw) != payloadObject {
		return Asset{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Asset{}, false
	}
	id := idOf(fields)
	if id == "" {
		return Asset{}, false
	}
	var asset Asset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return Asset{}, false
	}
	asset.ID = id
	return asset, true
}

func idOf(fields map[string]json.RawMessage) string {
	for _, key := range []string{"id", "assetId"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err == nil && id != "" {
			return id
		}
	}
	return ""
}

// searchShape names the recognized smart-search reply layouts.
type searchShape string

const (
	shapeItems  searchShape = "items"
	shapeSingle searchShape = "single"
	shapeList   searchShape = "list"
)

// searchPayload is a decoded smart-search reply: its shape and raw entries.
type searchPayload struct {
	shape   searchShape
	entries []json.RawMessage
}

// decodeSearch recognizes {items:[...]}, {assets:{items:[...]}}, a single
// asset object and a bare list. Other layouts are malformed.
func decodeSearch(body []byte) (searchPayload, error) {
	switch kindOf(body) {
	case payloadList:
		entries, err := decodeEntries(body)
		if err != nil {
			return searchPayload{}, err
		}
		return searchPayload{shape: shapeList, entries: entries}, nil
	case payloadObject:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return searchPayload{}, fmt.Errorf("search: %w: %v", ErrMalformedResponse, err)
		}
		if items, ok := fields["items"]; ok {
			return decodeItems(items)
		}
		if nested, ok := fields["assets"]; ok && kindOf(nested) == payloadObject {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(nested, &inner); err == nil {
				if items, ok := inner["items"]; ok {
					return decodeItems(items)
				}
			}
		}
		if idOf(fields) != "" {
			return searchPayload{shape: shapeSingle, entries: []json.RawMessage{body}}, nil
		}
	}
	return searchPayload{}, fmt.Errorf("search: %w: unrecognized shape", ErrMalformedResponse)
}

func decodeItems(raw json.RawMessage) (searchPayload, error) {
	entries, err := decodeEntries(raw)
	if err != nil {
		return searchPayload{}, err
	}
	return searchPayload{shape: shapeItems, entries: entries}, nil
}

func decodeEntries(raw json.RawMessage) ([]json.RawMessage, error) {
	if kindOf(raw) != payloadList {
		return nil, fmt.Errorf("search: %w: items is not a list", ErrMalformedResponse)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("search: %w: %v", ErrMalformedResponse, err)
	}
	return entries, nil
}

// assets returns the structurally valid entries, dropping the rest.
func (p searchPayload) assets() []Asset {
	out := make([]Asset, 0, len(p.entries))
	for _, raw := range p.entries {
		if asset, ok := decodeAsset(raw); ok {
			out = append(out, asset)
		}
	}
	return out
}
