package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/promptstash/promptstash/internal/common"
	"github.com/promptstash/promptstash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Prompt{}, &domain.PromptVersion{}))
	return db
}

func newPrompt(slug string, mutate ...func(*domain.Prompt)) *domain.Prompt {
	p := &domain.Prompt{
		ID:      uuid.New().String(),
		Slug:    slug,
		Title:   "Title for " + slug,
		Content: "Content for " + slug,
		Version: 1,
	}
	for _, m := range mutate {
		m(p)
	}
	return p
}

func TestPromptRepositoryCreate(t *testing.T) {
	db := setupDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newPrompt("greet")))

	t.Run("duplicate slug", func(t *testing.T) {
		err := repo.Create(ctx, newPrompt("greet"))
		assert.ErrorIs(t, err, common.ErrDuplicateSlug)
	})

	t.Run("find by slug", func(t *testing.T) {
		p, err := repo.FindBySlug(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, "greet", p.Slug)
		assert.Equal(t, 1, p.Version)
	})

	t.Run("missing slug", func(t *testing.T) {
		_, err := repo.FindBySlug(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("slug exists", func(t *testing.T) {
		exists, err := repo.SlugExists(ctx, "greet")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.SlugExists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestPromptRepositoryUpdateGuarded(t *testing.T) {
	db := setupDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newPrompt("guarded")))

	t.Run("matching version wins", func(t *testing.T) {
		err := repo.UpdateGuarded(ctx, "guarded", 1, map[string]interface{}{
			"content": "v2 content",
			"version": 2,
		})
		require.NoError(t, err)

		p, err := repo.FindBySlug(ctx, "guarded")
		require.NoError(t, err)
		assert.Equal(t, 2, p.Version)
		assert.Equal(t, "v2 content", p.Content)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		err := repo.UpdateGuarded(ctx, "guarded", 1, map[string]interface{}{
			"content": "lost update",
			"version": 2,
		})
		assert.ErrorIs(t, err, common.ErrConflict)

		p, err := repo.FindBySlug(ctx, "guarded")
		require.NoError(t, err)
		assert.Equal(t, "v2 content", p.Content)
	})

	t.Run("missing slug conflicts too", func(t *testing.T) {
		err := repo.UpdateGuarded(ctx, "nope", 1, map[string]interface{}{"version": 2})
		assert.ErrorIs(t, err, common.ErrConflict)
	})
}

func TestPromptRepositoryDelete(t *testing.T) {
	db := setupDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newPrompt("doomed")))
	require.NoError(t, repo.Delete(ctx, "doomed"))

	_, err := repo.FindBySlug(ctx, "doomed")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "doomed"), common.ErrNotFound)
}

func TestPromptRepositoryList(t *testing.T) {
	db := setupDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	seed := []*domain.Prompt{
		newPrompt("alpha", func(p *domain.Prompt) {
			p.Category = "coding"
			p.Tags = domain.StringList{"go", "review"}
			p.UsageCount = 5
		}),
		newPrompt("bravo", func(p *domain.Prompt) {
			p.Category = "coding"
			p.Tags = domain.StringList{"python"}
			p.UsageCount = 9
		}),
		newPrompt("charlie", func(p *domain.Prompt) {
			p.Category = "writing"
			p.Tags = domain.StringList{"go"}
			p.Description = "a special helper"
			p.UsageCount = 1
		}),
	}
	for _, p := range seed {
		require.NoError(t, repo.Create(ctx, p))
	}

	t.Run("no filter returns all", func(t *testing.T) {
		prompts, total, err := repo.List(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, prompts, 3)
	})

	t.Run("category filter", func(t *testing.T) {
		prompts, total, err := repo.List(ctx, ListFilter{Category: "coding"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, p := range prompts {
			assert.Equal(t, "coding", p.Category)
		}
	})

	t.Run("tags match any", func(t *testing.T) {
		prompts, total, err := repo.List(ctx, ListFilter{Tags: []string{"go", "python"}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		_ = prompts
	})

	t.Run("single tag", func(t *testing.T) {
		_, total, err := repo.List(ctx, ListFilter{Tags: []string{"python"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("query is case-insensitive over description", func(t *testing.T) {
		prompts, total, err := repo.List(ctx, ListFilter{Query: "SPECIAL"})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		assert.Equal(t, "charlie", prompts[0].Slug)
	})

	t.Run("sort by popularity", func(t *testing.T) {
		prompts, _, err := repo.List(ctx, ListFilter{Sort: SortPopular})
		require.NoError(t, err)
		require.Len(t, prompts, 3)
		assert.Equal(t, "bravo", prompts[0].Slug)
		assert.Equal(t, "alpha", prompts[1].Slug)
	})

	t.Run("sort by name", func(t *testing.T) {
		prompts, _, err := repo.List(ctx, ListFilter{Sort: SortName})
		require.NoError(t, err)
		assert.Equal(t, "alpha", prompts[0].Slug)
	})

	t.Run("pagination with clamped limit", func(t *testing.T) {
		prompts, total, err := repo.List(ctx, ListFilter{Sort: SortName, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, prompts, 2)

		prompts, _, err = repo.List(ctx, ListFilter{Sort: SortName, Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, prompts, 1)
		assert.Equal(t, "charlie", prompts[0].Slug)

		// Oversized limits fall back to the cap, non-positive to the default.
		prompts, _, err = repo.List(ctx, ListFilter{Limit: MaxPageSize + 50})
		require.NoError(t, err)
		assert.Len(t, prompts, 3)
	})
}

func TestPromptRepositoryIncrementUsage(t *testing.T) {
	db := setupDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newPrompt("used")))
	before, err := repo.FindBySlug(ctx, "used")
	require.NoError(t, err)
	require.Nil(t, before.LastUsedAt)

	require.NoError(t, repo.IncrementUsage(ctx, "used"))
	require.NoError(t, repo.IncrementUsage(ctx, "used"))

	after, err := repo.FindBySlug(ctx, "used")
	require.NoError(t, err)
	assert.Equal(t, int64(2), after.UsageCount)
	require.NotNil(t, after.LastUsedAt)
	assert.WithinDuration(t, time.Now().UTC(), *after.LastUsedAt, time.Minute)
	// Usage is not a content change.
	assert.Equal(t, 1, after.Version)

	assert.ErrorIs(t, repo.IncrementUsage(ctx, "nope"), common.ErrNotFound)
}

func TestPromptRepositoryRandom(t *testing.T) {
	db := setupDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		_, err := repo.Random(ctx, "")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	require.NoError(t, repo.Create(ctx, newPrompt("r1", func(p *domain.Prompt) { p.Category = "a" })))
	require.NoError(t, repo.Create(ctx, newPrompt("r2", func(p *domain.Prompt) { p.Category = "b" })))

	t.Run("category scoped", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			p, err := repo.Random(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "r1", p.Slug)
		}
	})

	t.Run("no match in category", func(t *testing.T) {
		_, err := repo.Random(ctx, "missing")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("unscoped returns something", func(t *testing.T) {
		p, err := repo.Random(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, []string{"r1", "r2"}, p.Slug)
	})
}

func TestPromptRepositoryAggregates(t *testing.T) {
	db := setupDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	t.Run("empty library", func(t *testing.T) {
		count, err := repo.CountAll(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		total, err := repo.TotalUsage(ctx)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	now := time.Now().UTC()
	seed := []*domain.Prompt{
		newPrompt("agg-1", func(p *domain.Prompt) {
			p.Category = "coding"
			p.Tags = domain.StringList{"go", "review"}
			p.UsageCount = 10
			p.LastUsedAt = &now
		}),
		newPrompt("agg-2", func(p *domain.Prompt) {
			p.Category = "coding"
			p.Tags = domain.StringList{"go"}
			p.UsageCount = 3
		}),
		newPrompt("agg-3", func(p *domain.Prompt) {
			p.Category = "writing"
			p.UsageCount = 7
		}),
	}
	for _, p := range seed {
		require.NoError(t, repo.Create(ctx, p))
	}

	t.Run("counts", func(t *testing.T) {
		count, err := repo.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		total, err := repo.TotalUsage(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(20), total)
	})

	t.Run("top used", func(t *testing.T) {
		top, err := repo.TopUsed(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "agg-1", top[0].Slug)
		assert.Equal(t, "agg-3", top[1].Slug)
	})

	t.Run("recently used skips never-used", func(t *testing.T) {
		recent, err := repo.RecentlyUsed(ctx, 5)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "agg-1", recent[0].Slug)
	})

	t.Run("recently added", func(t *testing.T) {
		added, err := repo.RecentlyAdded(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, added, 2)
	})

	t.Run("category counts", func(t *testing.T) {
		counts, err := repo.CategoryCounts(ctx)
		require.NoError(t, err)
		require.Len(t, counts, 2)
		assert.Equal(t, domain.CategoryCount{Category: "coding", Count: 2}, counts[0])
		assert.Equal(t, domain.CategoryCount{Category: "writing", Count: 1}, counts[1])
	})

	t.Run("tag counts", func(t *testing.T) {
		counts, err := repo.TagCounts(ctx)
		require.NoError(t, err)
		require.Len(t, counts, 2)
		assert.Equal(t, domain.TagCount{Tag: "go", Count: 2}, counts[0])
		assert.Equal(t, domain.TagCount{Tag: "review", Count: 1}, counts[1])
	})
}

func TestPromptRepositoryWithTx(t *testing.T) {
	db := setupDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	// A rolled-back transaction leaves no trace.
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).Create(ctx, newPrompt("ghost")); err != nil {
			return err
		}
		return fmt.Errorf("force rollback")
	})
	require.Error(t, err)

	_, err = repo.FindBySlug(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
