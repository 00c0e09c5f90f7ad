package immich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"
)

type mutationLog struct {
	recorder
	bodies []map[string]any
}

func newMutationBackend(t *testing.T) (*Client, *mutationLog) {
	t.Helper()
	log := &mutationLog{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		log.add(r.Method, r.URL.Path)
		log.mu.Lock()
		log.bodies = append(log.bodies, body)
		log.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	return c, log
}

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"delete", "keep", "fav", "archive", " FAV "} {
		if _, err := ParseAction(raw); err != nil {
			t.Errorf("ParseAction(%q): %v", raw, err)
		}
	}
	for _, raw := range []string{"", "trash", "favorite"} {
		_, err := ParseAction(raw)
		if !errors.Is(err, ErrUnknownAction) {
			t.Errorf("ParseAction(%q): expected ErrUnknownAction, got %v", raw, err)
		}
		if ErrorKind(err) != "UnknownAction" {
			t.Errorf("ErrorKind = %q", ErrorKind(err))
		}
	}
}

func TestDeleteThenUndoRestores(t *testing.T) {
	c, log := newMutationBackend(t)
	ctx := context.Background()

	if err := c.Apply(ctx, "asset-1", ActionDelete); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := c.Undo(ctx, "asset-1", ActionDelete); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	want := []string{"DELETE /assets", "POST /trash/restore/assets"}
	if got := log.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("requests = %v, want %v", got, want)
	}
	for _, body := range log.bodies {
		if _, ok := body["isFavorite"]; ok {
			t.Errorf("unexpected favorite mutation: %v", body)
		}
		if _, ok := body["isArchived"]; ok {
			t.Errorf("unexpected archive mutation: %v", body)
		}
		if !reflect.DeepEqual(body["ids"], []any{"asset-1"}) {
			t.Errorf("ids = %v", body["ids"])
		}
	}
}

func TestApplyAndUndoRequests(t *testing.T) {
	tests := []struct {
		action    Action
		applyBody map[string]any
		undoBody  map[string]any
	}{
		{ActionFav, map[string]any{"ids": []any{"a"}, "isFavorite": true}, map[string]any{"ids": []any{"a"}, "isFavorite": false}},
		{ActionArchive, map[string]any{"ids": []any{"a"}, "isArchived": true}, map[string]any{"ids": []any{"a"}, "isArchived": false}},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			c, log := newMutationBackend(t)
			ctx := context.Background()

			if err := c.Apply(ctx, "a", tt.action); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if err := c.Undo(ctx, "a", tt.action); err != nil {
				t.Fatalf("Undo: %v", err)
			}
			if got := log.all(); !reflect.DeepEqual(got, []string{"PUT /assets", "PUT /assets"}) {
				t.Errorf("requests = %v", got)
			}
			if !reflect.DeepEqual(log.bodies[0], tt.applyBody) {
				t.Errorf("apply body = %v", log.bodies[0])
			}
			if !reflect.DeepEqual(log.bodies[1], tt.undoBody) {
				t.Errorf("undo body = %v", log.bodies[1])
			}
		})
	}
}

func TestKeepIssuesNoRequest(t *testing.T) {
	c, log := newMutationBackend(t)
	ctx := context.Background()

	if err := c.Apply(ctx, "a", ActionKeep); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := c.Undo(ctx, "a", ActionKeep); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := log.all(); len(got) != 0 {
		t.Errorf("keep issued requests: %v", got)
	}
}

func TestApplyRejection(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Not found or no asset.delete access"}`))
	}))

	err := c.Apply(context.Background(), "missing", ActionDelete)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
}

func TestMedia(t *testing.T) {
	tests := []struct {
		name        string
		size        MediaSize
		contentType string
		want        string
	}{
		{"thumbnail webp", SizeThumbnail, "image/webp", "image/webp"},
		{"thumbnail default", SizeThumbnail, "", "image/jpeg"},
		{"original video", SizeOriginal, "video/quicktime", "video/quicktime"},
		{"original octet stream", SizeOriginal, "application/octet-stream", "video/mp4"},
		{"original missing type", SizeOriginal, "", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				// Suppress content sniffing so an empty type reaches the client.
				w.Header()["Content-Type"] = nil
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				_, _ = w.Write([]byte("bytes"))
			}))

			blob, err := c.Media(context.Background(), "asset-9", tt.size)
			if err != nil {
				t.Fatalf("Media: %v", err)
			}
			if blob.ContentType != tt.want {
				t.Errorf("content type = %q, want %q", blob.ContentType, tt.want)
			}
			if string(blob.Data) != "bytes" {
				t.Errorf("data = %q", blob.Data)
			}
			if path != "/assets/asset-9/"+string(tt.size) {
				t.Errorf("path = %q", path)
			}
		})
	}
}

func TestMediaInvalidSize(t *testing.T) {
	c, log := newMutationBackend(t)
	if _, err := c.Media(context.Background(), "a", MediaSize("preview")); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := ParseMediaSize("huge"); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if len(log.all()) != 0 {
		t.Errorf("invalid size reached the backend")
	}
}
