// Package review connects the asset client to the web and chat front-ends:
// it picks a sampling strategy, formats assets and tracks undo history.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/photosort/internal/immich"
	"github.com/user/photosort/internal/types"
)

// MaxCount caps how many assets one Next call may request.
const MaxCount = 50

// ErrNothingToUndo is returned by UndoLast for a session with no history.
var ErrNothingToUndo = errors.New("nothing to undo")

// Library is the subset of the asset client the service drives.
type Library interface {
	Sample(ctx context.Context, n int) ([]immich.Asset, error)
	FilteredSample(ctx context.Context, n int, models []string) ([]immich.Asset, error)
	Search(ctx context.Context, term string, n int, refine bool) ([]immich.Asset, error)
	CameraModels(ctx context.Context) ([]string, error)
	Apply(ctx context.Context, id string, action immich.Action) error
	Undo(ctx context.Context, id string, action immich.Action) error
	Media(ctx context.Context, id string, size immich.MediaSize) (*immich.MediaBlob, error)
}

var _ Library = (*immich.Client)(nil)

// Request selects the next assets to review.
type Request struct {
	Count   int
	Cameras []string
	Query   string
	Refine  bool
}

// Batch is the result of Next. Done is set when nothing was found.
type Batch struct {
	Assets []Summary
	Done   bool
}

// Service is safe for concurrent use by multiple front-ends.
type Service struct {
	lib     Library
	history types.HistoryStore
}

func NewService(lib Library, history types.HistoryStore) *Service {
	return &Service{lib: lib, history: history}
}

// ParseCameras splits a comma-separated camera list, dropping blanks.
func ParseCameras(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func clampCount(n int) int {
	return min(max(n, 1), MaxCount)
}

// Next fetches the next assets: smart search when a query is set, camera
// filtered sampling when cameras are set, plain random sampling otherwise.
func (s *Service) Next(ctx context.Context, req Request) (Batch, error) {
	count := clampCount(req.Count)
	query := strings.TrimSpace(req.Query)

	var (
		assets []immich.Asset
		err    error
	)
	switch {
	case query != "":
		slog.Info("fetching assets", "count", count, "query", query, "refine", req.Refine)
		assets, err = s.lib.Search(ctx, query, count, req.Refine)
	case len(req.Cameras) > 0:
		slog.Info("fetching assets", "count", count, "cameras", req.Cameras)
		assets, err = s.lib.FilteredSample(ctx, count, req.Cameras)
	default:
		slog.Info("fetching assets", "count", count)
		assets, err = s.lib.Sample(ctx, count)
	}
	if err != nil {
		return Batch{}, fmt.Errorf("next assets: %w", err)
	}
	if len(assets) == 0 {
		slog.Info("no more assets available")
		return Batch{Done: true}, nil
	}

	batch := Batch{Assets: make([]Summary, 0, len(assets))}
	for _, a := range assets {
		batch.Assets = append(batch.Assets, Summarize(a))
	}
	return batch, nil
}

// Act applies an action and records it for undo.
func (s *Service) Act(ctx context.Context, session types.SessionKey, id, rawAction string) (types.HistoryEntry, error) {
	action, err := immich.ParseAction(rawAction)
	if err != nil {
		slog.Warn("unknown action", "action", rawAction, "asset_id", id)
		return types.HistoryEntry{}, err
	}
	if err := s.lib.Apply(ctx, id, action); err != nil {
		return types.HistoryEntry{}, err
	}
	slog.Info("action applied", "action", action, "asset_id", id, "session", session)
	return s.history.Record(session, id, string(action)), nil
}

// Undo reverts an action on id and forgets its newest history entry.
func (s *Service) Undo(ctx context.Context, session types.SessionKey, id, rawAction string) error {
	action, err := immich.ParseAction(rawAction)
	if err != nil {
		return err
	}
	if err := s.lib.Undo(ctx, id, action); err != nil {
		return err
	}
	s.history.Take(session, id, string(action))
	slog.Info("action undone", "action", action, "asset_id", id, "session", session)
	return nil
}

// UndoLast reverts the most recent action of a session.
func (s *Service) UndoLast(ctx context.Context, session types.SessionKey) (types.HistoryEntry, error) {
	entry, ok := s.history.Last(session)
	if !ok {
		return types.HistoryEntry{}, ErrNothingToUndo
	}
	if err := s.Undo(ctx, session, entry.AssetID, entry.Action); err != nil {
		return types.HistoryEntry{}, err
	}
	return entry, nil
}

// Cameras lists the camera models available for filtering.
func (s *Service) Cameras(ctx context.Context) ([]string, error) {
	return s.lib.CameraModels(ctx)
}

// Media returns asset content for a raw size name.
func (s *Service) Media(ctx context.Context, id, rawSize string) (*immich.MediaBlob, error) {
	size, err := immich.ParseMediaSize(rawSize)
	if err != nil {
		return nil, err
	}
	return s.lib.Media(ctx, id, size)
}

// History lists recent decisions of a session, newest first.
func (s *Service) History(session types.SessionKey, limit int) []types.HistoryEntry {
	return s.history.List(session, limit)
}
