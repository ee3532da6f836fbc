package navigation

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNavRepo struct {
	mu    sync.Mutex
	items map[string]Item
}

func newFakeNavRepo() *fakeNavRepo {
	return &fakeNavRepo{items: map[string]Item{}}
}

func (f *fakeNavRepo) CreateItem(_ context.Context, item Item) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeNavRepo) GetItem(_ context.Context, id string) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (f *fakeNavRepo) UpdateItem(_ context.Context, item Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
	return nil
}

func (f *fakeNavRepo) DeleteItem(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeNavRepo) ListItems(_ context.Context) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Item, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func TestVisibleTree(t *testing.T) {
	svc := NewService(newFakeNavRepo(), zerolog.Nop())
	ctx := context.Background()

	services, err := svc.CreateItem(ctx, CreateItemParams{Label: "Services", URL: "/services", Position: 0, Visible: true})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, CreateItemParams{Label: "Cardiology", URL: "/services/cardiology", ParentID: services.ID, Position: 0, Visible: true})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, CreateItemParams{Label: "Hidden", URL: "/hidden", Position: 1, Visible: false})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, CreateItemParams{Label: "Contact", URL: "/contact", Position: 2, Visible: true})
	require.NoError(t, err)

	tree, err := svc.VisibleTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Services", tree[0].Label)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Cardiology", tree[0].Children[0].Label)
	assert.Equal(t, "Contact", tree[1].Label)
}

func TestNestingLimitedToOneLevel(t *testing.T) {
	svc := NewService(newFakeNavRepo(), zerolog.Nop())
	ctx := context.Background()

	top, err := svc.CreateItem(ctx, CreateItemParams{Label: "Top", URL: "/", Visible: true})
	require.NoError(t, err)
	child, err := svc.CreateItem(ctx, CreateItemParams{Label: "Child", URL: "/c", ParentID: top.ID, Visible: true})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, CreateItemParams{Label: "Grandchild", URL: "/g", ParentID: child.ID, Visible: true})
	assert.ErrorIs(t, err, ErrCyclicParent)

	_, err = svc.UpdateItem(ctx, top.ID, UpdateItemParams{Label: "Top", URL: "/", ParentID: top.ID, Visible: true})
	assert.ErrorIs(t, err, ErrCyclicParent)
}

func TestDeleteItem_PromotesChildren(t *testing.T) {
	svc := NewService(newFakeNavRepo(), zerolog.Nop())
	ctx := context.Background()

	parent, err := svc.CreateItem(ctx, CreateItemParams{Label: "Parent", URL: "/p", Visible: true})
	require.NoError(t, err)
	child, err := svc.CreateItem(ctx, CreateItemParams{Label: "Child", URL: "/c", ParentID: parent.ID, Visible: true})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(ctx, parent.ID))

	items, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, child.ID, items[0].ID)
	assert.Empty(t, items[0].ParentID)
}

func TestReorder(t *testing.T) {
	svc := NewService(newFakeNavRepo(), zerolog.Nop())
	ctx := context.Background()

	a, err := svc.CreateItem(ctx, CreateItemParams{Label: "A", URL: "/a", Position: 0, Visible: true})
	require.NoError(t, err)
	b, err := svc.CreateItem(ctx, CreateItemParams{Label: "B", URL: "/b", Position: 1, Visible: true})
	require.NoError(t, err)

	require.NoError(t, svc.Reorder(ctx, []string{b.ID, a.ID}))

	items, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].Label)
	assert.Equal(t, "A", items[1].Label)
}
