package navigation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/sanitize"
)

var (
	ErrItemNotFound = errors.New("navigation item not found")
	ErrCyclicParent = errors.New("navigation item cannot be its own ancestor")
)

// Item is one entry in the site navigation. Items nest one level deep via
// ParentID and are ordered by Position within their level.
type Item struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	URL       string    `json:"url"`
	ParentID  string    `json:"parent_id,omitempty"`
	Position  int       `json:"position"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository is the persistence contract for navigation items.
type Repository interface {
	CreateItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context) ([]Item, error)
}

// Service manages the navigation tree.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "navigation").Logger(),
	}
}

// CreateItemParams contains fields for a new navigation item.
type CreateItemParams struct {
	Label    string
	URL      string
	ParentID string
	Position int
	Visible  bool
}

func (s *Service) CreateItem(ctx context.Context, params CreateItemParams) (Item, error) {
	if params.ParentID != "" {
		parent, err := s.repo.GetItem(ctx, params.ParentID)
		if err != nil {
			return Item{}, fmt.Errorf("resolve parent: %w", err)
		}
		// One level of nesting only.
		if parent.ParentID != "" {
			return Item{}, ErrCyclicParent
		}
	}

	now := time.Now().UTC()
	item := Item{
		ID:        ulid.Make().String(),
		Label:     sanitize.Text(params.Label),
		URL:       params.URL,
		ParentID:  params.ParentID,
		Position:  params.Position,
		Visible:   params.Visible,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.repo.CreateItem(ctx, item)
}

// UpdateItemParams contains mutable navigation item fields.
type UpdateItemParams struct {
	Label    string
	URL      string
	ParentID string
	Position int
	Visible  bool
}

func (s *Service) UpdateItem(ctx context.Context, id string, params UpdateItemParams) (Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if params.ParentID == id {
		return Item{}, ErrCyclicParent
	}
	if params.ParentID != "" {
		parent, err := s.repo.GetItem(ctx, params.ParentID)
		if err != nil {
			return Item{}, fmt.Errorf("resolve parent: %w", err)
		}
		if parent.ParentID != "" {
			return Item{}, ErrCyclicParent
		}
	}

	item.Label = sanitize.Text(params.Label)
	item.URL = params.URL
	item.ParentID = params.ParentID
	item.Position = params.Position
	item.Visible = params.Visible
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return Item{}, fmt.Errorf("update navigation item: %w", err)
	}
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if _, err := s.repo.GetItem(ctx, id); err != nil {
		return err
	}

	// Orphaned children move to the top level rather than disappearing.
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return err
	}
	for _, child := range items {
		if child.ParentID == id {
			child.ParentID = ""
			child.UpdatedAt = time.Now().UTC()
			if err := s.repo.UpdateItem(ctx, child); err != nil {
				return fmt.Errorf("detach child item: %w", err)
			}
		}
	}

	return s.repo.DeleteItem(ctx, id)
}

// Reorder applies a new position ordering given item IDs in display order.
func (s *Service) Reorder(ctx context.Context, orderedIDs []string) error {
	for position, id := range orderedIDs {
		item, err := s.repo.GetItem(ctx, id)
		if err != nil {
			return err
		}
		item.Position = position
		item.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("reorder item %s: %w", id, err)
		}
	}
	return nil
}

// ListAll returns every item in position order, including hidden ones.
func (s *Service) ListAll(ctx context.Context) ([]Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	sortItems(items)
	return items, nil
}

// Tree is a navigation item with its children, as rendered on the site.
type Tree struct {
	Item
	Children []Item `json:"children,omitempty"`
}

// VisibleTree returns only visible items assembled into a two-level tree for
// the public site. Children of hidden parents are hidden with them.
func (s *Service) VisibleTree(ctx context.Context) ([]Tree, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	sortItems(items)

	byParent := map[string][]Item{}
	for _, item := range items {
		if !item.Visible {
			continue
		}
		byParent[item.ParentID] = append(byParent[item.ParentID], item)
	}

	var tree []Tree
	for _, top := range byParent[""] {
		tree = append(tree, Tree{Item: top, Children: byParent[top.ID]})
	}
	return tree, nil
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
