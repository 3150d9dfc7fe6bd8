package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whx4/wxc/internal/contract"
	"github.com/whx4/wxc/internal/query"
	"github.com/whx4/wxc/internal/registry"
)

func testRegistry() *registry.Registry {
	return registry.New("post",
		registry.Collection{Type: "post", Order: "DESC", OrderBy: "date"},
		registry.Collection{
			Type:      "event",
			Order:     "ASC",
			OrderBy:   "field",
			DateField: registry.DateFieldSpec{Key: "event_date", Cast: "DATE"},
		},
		registry.Collection{
			Type:    "project",
			OrderBy: "field",
			DateField: registry.DateFieldSpec{
				Key:          "years_active",
				Cast:         "NUMERIC",
				Shape:        "rows",
				NumericYears: true,
			},
		},
	)
}

func testClock() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func openSeeded(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	items := []query.Item{
		{
			ID: "ev1", CollectionType: "event", Title: "June Opening", Slug: "june-opening",
			Status: "publish", PublishedAt: "2024-05-20 09:00:00",
			Fields: map[string]any{"event_date": "2024-06-05", "price": "10"},
			Terms:  map[string][]string{"category": {"news"}},
		},
		{
			ID: "ev2", CollectionType: "event", Title: "June Briefing", Slug: "june-briefing",
			Status: "publish", PublishedAt: "2024-05-22 09:00:00",
			Fields: map[string]any{"event_date": "2024-06-20", "price": "45"},
			Terms:  map[string][]string{"category": {"press"}},
		},
		{
			ID: "ev3", CollectionType: "event", Title: "July Gala", Slug: "july-gala",
			Status: "publish", PublishedAt: "2024-05-25 09:00:00",
			Fields: map[string]any{"event_date": "2024-07-02", "price": "99"},
			Terms:  map[string][]string{"category": {"news"}},
		},
		{
			ID: "ev4", CollectionType: "event", Title: "Draft Event", Slug: "draft-event",
			Status: "draft",
			Fields: map[string]any{"event_date": "2024-06-10"},
		},
		{
			ID: "pr1", CollectionType: "project", Title: "Archive Digitization", Slug: "archive",
			Status: "publish",
			Fields: map[string]any{"years_active": []any{"2020", "2021"}},
		},
		{
			ID: "pr2", CollectionType: "project", Title: "New Wing", Slug: "new-wing",
			Status: "publish",
			Fields: map[string]any{"years_active": "2023"},
		},
		{
			ID: "pr3", CollectionType: "project", Title: "Serialized Legacy", Slug: "legacy",
			Status: "publish",
			Fields: map[string]any{"era": `a:2:{i:0;i:2020;i:1;i:2021;}`},
		},
	}
	for _, it := range items {
		require.NoError(t, s.Put(ctx, it))
	}
	return s
}

func testQueries(t *testing.T) (*query.Queries, *Store) {
	s := openSeeded(t)
	return query.New(testRegistry(), s, query.WithClock(testClock)), s
}

func TestExecuteThisMonthWithTagExclusion(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "event",
		Scope:          "this_month",
		Tags:           map[string]any{"category": []any{"news", "-press"}},
	})
	require.NoError(t, err)

	// ev2 is in June but tagged press; ev3 is July; ev4 is a draft.
	require.Len(t, res.Items, 1)
	assert.Equal(t, "ev1", res.Items[0].ID)
	assert.Equal(t, 1, res.TotalFound)
	assert.Equal(t, 1, res.TotalPages)
}

func TestExecuteThisMonth(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "event",
		Scope:          "this_month",
	})
	require.NoError(t, err)

	// ASC ordering on event_date.
	require.Len(t, res.Items, 2)
	assert.Equal(t, "ev1", res.Items[0].ID)
	assert.Equal(t, "ev2", res.Items[1].ID)
}

func TestExecuteHydratesItems(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "event",
		Scope:          "this_month",
		Tags:           map[string]any{"category": "news"},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	it := res.Items[0]
	assert.Equal(t, "2024-06-05", it.Fields["event_date"])
	assert.Equal(t, "10", it.Fields["price"])
	assert.Equal(t, []string{"news"}, it.Terms["category"])
}

func TestExecuteNumericYearRows(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "project",
		Scope:          "2020-2022",
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "pr1", res.Items[0].ID)
	assert.Equal(t, []any{"2020", "2021"}, res.Items[0].Fields["years_active"])
}

func TestExecuteSerializedYears(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "project",
		Scope:          "2021",
		DateField: registry.DateFieldSpec{
			Key:          "era",
			Cast:         "NUMERIC",
			Shape:        "serialized",
			NumericYears: true,
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "pr3", res.Items[0].ID)
}

func TestExecuteUserClauses(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "event",
		Meta:           map[string]any{"type": "gte", "key": "price", "value": 40, "cast": "int"},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "ev2", res.Items[0].ID)
	assert.Equal(t, "ev3", res.Items[1].ID)
}

func TestExecutePaging(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "event",
		Limit:          intp(1),
		Page:           2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalFound)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "ev2", res.Items[0].ID)
}

func TestExecuteUnlimited(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "event",
		Limit:          intp(-1),
	})
	require.NoError(t, err)

	assert.Len(t, res.Items, 3)
	assert.Equal(t, 1, res.TotalPages)
}

func TestExecuteStatusGuard(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "event",
		Status:         "draft",
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "ev4", res.Items[0].ID)
}

func TestExecuteEmptyResult(t *testing.T) {
	q, _ := testQueries(t)

	res, err := q.Find(context.Background(), contract.Filters{
		CollectionType: "event",
		Scope:          "2031",
	})
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.TotalFound)
	assert.Equal(t, 0, res.TotalPages)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, pageCount(0, 10))
	assert.Equal(t, 1, pageCount(10, 10))
	assert.Equal(t, 2, pageCount(11, 10))
	assert.Equal(t, 1, pageCount(5, -1))
	assert.Equal(t, 0, pageCount(0, -1))
}

func TestPutRequiresID(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.Put(context.Background(), query.Item{}))
}

func TestPutReplaces(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, query.Item{
		ID: "ev1", CollectionType: "event", Title: "Renamed", Status: "publish",
		Fields: map[string]any{"event_date": "2024-06-06"},
	}))

	q := query.New(testRegistry(), s, query.WithClock(testClock))
	res, err := q.Find(ctx, contract.Filters{CollectionType: "event", Scope: "this_month"})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "Renamed", res.Items[0].Title)
	assert.Equal(t, "2024-06-06", res.Items[0].Fields["event_date"])
	// Old term assignments are gone.
	assert.Empty(t, res.Items[0].Terms)
}

func intp(n int) *int { return &n }
