package immich

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Action is a triage decision.
type Action string

const (
	ActionDelete  Action = "delete"
	ActionKeep    Action = "keep"
	ActionFav     Action = "fav"
	ActionArchive Action = "archive"
)

// Actions lists every valid action in display order.
var Actions = []Action{ActionKeep, ActionDelete, ActionFav, ActionArchive}

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionDelete, ActionKeep, ActionFav, ActionArchive:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type favoriteRequest struct {
	IDs        []string `json:"ids"`
	IsFavorite bool     `json:"isFavorite"`
}

type archiveRequest struct {
	IDs        []string `json:"ids"`
	IsArchived bool     `json:"isArchived"`
}

// SetFavorite flags or unflags an asset as favorite.
func (c *Client) SetFavorite(ctx context.Context, id string, favorite bool) error {
	_, err := c.transport.Mutate(ctx, http.MethodPut, "/assets", favoriteRequest{IDs: []string{id}, IsFavorite: favorite})
	if err != nil {
		return fmt.Errorf("set favorite=%t on %s: %w", favorite, id, err)
	}
	return nil
}

// SetArchived archives or unarchives an asset.
func (c *Client) SetArchived(ctx context.Context, id string, archived bool) error {
	_, err := c.transport.Mutate(ctx, http.MethodPut, "/assets", archiveRequest{IDs: []string{id}, IsArchived: archived})
	if err != nil {
		return fmt.Errorf("set archived=%t on %s: %w", archived, id, err)
	}
	return nil
}

// Delete moves an asset to the trash.
func (c *Client) Delete(ctx context.Context, id string) error {
	if _, err := c.transport.Mutate(ctx, http.MethodDelete, "/assets", idsRequest{IDs: []string{id}}); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Restore takes an asset back out of the trash.
func (c *Client) Restore(ctx context.Context, id string) error {
	if _, err := c.transport.Mutate(ctx, http.MethodPost, "/trash/restore/assets", idsRequest{IDs: []string{id}}); err != nil {
		return fmt.Errorf("restore %s: %w", id, err)
	}
	return nil
}

// Apply forwards a triage decision to the backend. Keep issues no request.
func (c *Client) Apply(ctx context.Context, id string, action Action) error {
	switch action {
	case ActionDelete:
		return c.Delete(ctx, id)
	case ActionFav:
		return c.SetFavorite(ctx, id, true)
	case ActionArchive:
		return c.SetArchived(ctx, id, true)
	case ActionKeep:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// Undo issues the inverse of Apply.
func (c *Client) Undo(ctx context.Context, id string, action Action) error {
	switch action {
	case ActionDelete:
		return c.Restore(ctx, id)
	case ActionFav:
		return c.SetFavorite(ctx, id, false)
	case ActionArchive:
		return c.SetArchived(ctx, id, false)
	case ActionKeep:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}
