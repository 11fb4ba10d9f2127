package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/promptstash/promptstash/internal/common"
	"github.com/promptstash/promptstash/internal/domain"
	"github.com/promptstash/promptstash/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*PromptService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Prompt{}, &domain.PromptVersion{}))

	svc := NewPromptService(db,
		repository.NewPromptRepository(db),
		repository.NewVersionRepository(db),
		nil,
	)
	return svc, db
}

func strPtr(s string) *string { return &s }

func historyCount(t *testing.T, db *gorm.DB, promptID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&domain.PromptVersion{}).
		Where("prompt_id = ?", promptID).Count(&count).Error)
	return count
}

func TestCreatePrompt(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	t.Run("starts at version one with empty history", func(t *testing.T) {
		p, err := svc.CreatePrompt(ctx, CreateInput{
			Slug:    "greet",
			Title:   "Greeting",
			Content: "Hello {{name}}",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, p.Version)
		assert.Zero(t, historyCount(t, db, p.ID))
	})

	t.Run("template flags derived from content", func(t *testing.T) {
		p, err := svc.GetPrompt(ctx, "greet", false)
		require.NoError(t, err)
		assert.True(t, p.IsTemplate)
		require.Contains(t, p.TemplateVars, "name")
		assert.Equal(t, "string", p.TemplateVars["name"].Type)
	})

	t.Run("plain content is not a template", func(t *testing.T) {
		p, err := svc.CreatePrompt(ctx, CreateInput{
			Slug:    "plain",
			Title:   "Plain",
			Content: "no variables here",
		})
		require.NoError(t, err)
		assert.False(t, p.IsTemplate)
		assert.Empty(t, p.TemplateVars)
	})

	t.Run("explicit duplicate slug is rejected", func(t *testing.T) {
		_, err := svc.CreatePrompt(ctx, CreateInput{
			Slug:    "greet",
			Title:   "Another",
			Content: "x",
		})
		assert.ErrorIs(t, err, common.ErrDuplicateSlug)
	})

	t.Run("auto slug derives from title and suffixes on collision", func(t *testing.T) {
		first, err := svc.CreatePrompt(ctx, CreateInput{Title: "Code Review!", Content: "a"})
		require.NoError(t, err)
		assert.Equal(t, "code-review", first.Slug)

		second, err := svc.CreatePrompt(ctx, CreateInput{Title: "Code Review!", Content: "b"})
		require.NoError(t, err)
		assert.Equal(t, "code-review-2", second.Slug)

		third, err := svc.CreatePrompt(ctx, CreateInput{Title: "Code Review!", Content: "c"})
		require.NoError(t, err)
		assert.Equal(t, "code-review-3", third.Slug)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := svc.CreatePrompt(ctx, CreateInput{Title: "", Content: "x"})
		assert.ErrorIs(t, err, common.ErrValidation)

		_, err = svc.CreatePrompt(ctx, CreateInput{Title: "T", Content: ""})
		assert.ErrorIs(t, err, common.ErrValidation)

		_, err = svc.CreatePrompt(ctx, CreateInput{Slug: "Bad Slug!", Title: "T", Content: "x"})
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestGetPromptUsage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePrompt(ctx, CreateInput{Slug: "counted", Title: "T", Content: "x"})
	require.NoError(t, err)
	require.Zero(t, created.UsageCount)

	p, err := svc.GetPrompt(ctx, "counted", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UsageCount)
	assert.NotNil(t, p.LastUsedAt)

	p, err = svc.GetPrompt(ctx, "counted", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UsageCount)

	_, err = svc.GetPrompt(ctx, "missing", true)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdatePromptMetadataOnly(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePrompt(ctx, CreateInput{Slug: "meta", Title: "T", Content: "body"})
	require.NoError(t, err)

	p, err := svc.UpdatePrompt(ctx, "meta", UpdateInput{
		Title:    strPtr("New Title"),
		Category: strPtr("coding"),
		Tags:     &[]string{"go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New Title", p.Title)
	assert.Equal(t, "coding", p.Category)
	assert.Equal(t, domain.StringList{"go"}, p.Tags)

	// Metadata never bumps the version or writes history.
	assert.Equal(t, 1, p.Version)
	assert.Zero(t, historyCount(t, db, created.ID))
}

func TestUpdatePromptContent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePrompt(ctx, CreateInput{
		Slug:    "versioned",
		Title:   "T",
		Content: "first draft",
	})
	require.NoError(t, err)

	t.Run("content change snapshots old content at old version", func(t *testing.T) {
		p, err := svc.UpdatePrompt(ctx, "versioned", UpdateInput{
			Content:    strPtr("second draft"),
			ChangeNote: "tightened wording",
		})
		require.NoError(t, err)
		assert.Equal(t, 2, p.Version)
		assert.Equal(t, "second draft", p.Content)

		v, err := svc.GetVersion(ctx, "versioned", 1)
		require.NoError(t, err)
		assert.Equal(t, "first draft", v.Content)
		assert.Equal(t, "tightened wording", v.ChangeNote)
	})

	t.Run("identical content is a no-op for the version", func(t *testing.T) {
		p, err := svc.UpdatePrompt(ctx, "versioned", UpdateInput{
			Content: strPtr("second draft"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, p.Version)
		assert.Equal(t, int64(1), historyCount(t, db, created.ID))
	})

	t.Run("mixed update changes metadata and bumps once", func(t *testing.T) {
		p, err := svc.UpdatePrompt(ctx, "versioned", UpdateInput{
			Content: strPtr("third draft"),
			Title:   strPtr("Renamed"),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, p.Version)
		assert.Equal(t, "Renamed", p.Title)
	})

	t.Run("template flags follow the new content", func(t *testing.T) {
		p, err := svc.UpdatePrompt(ctx, "versioned", UpdateInput{
			Content: strPtr("Hello {{who}}"),
		})
		require.NoError(t, err)
		assert.True(t, p.IsTemplate)
		assert.Contains(t, p.TemplateVars, "who")

		p, err = svc.UpdatePrompt(ctx, "versioned", UpdateInput{
			Content: strPtr("plain again"),
		})
		require.NoError(t, err)
		assert.False(t, p.IsTemplate)
	})

	t.Run("history stays contiguous", func(t *testing.T) {
		versions, err := svc.ListVersions(ctx, "versioned")
		require.NoError(t, err)
		require.Len(t, versions, 4)
		for i, v := range versions {
			assert.Equal(t, len(versions)-i, v.Version)
		}
		live, err := svc.GetPrompt(ctx, "versioned", false)
		require.NoError(t, err)
		assert.Equal(t, 5, live.Version)
	})

	t.Run("missing prompt", func(t *testing.T) {
		_, err := svc.UpdatePrompt(ctx, "missing", UpdateInput{Content: strPtr("x")})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestUpdatePromptConflict(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePrompt(ctx, CreateInput{Slug: "raced", Title: "T", Content: "v1"})
	require.NoError(t, err)

	// Simulate a writer that sneaks in after the read: bump the stored
	// version out from under the guarded update.
	p, err := svc.GetPrompt(ctx, "raced", false)
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.Prompt{}).
		Where("slug = ?", "raced").
		Update("version", p.Version+1).Error)

	_, err = svc.UpdatePrompt(ctx, "raced", UpdateInput{Content: strPtr("stale write")})
	assert.ErrorIs(t, err, common.ErrConflict)

	// The losing transaction rolled back: no orphan snapshot.
	var count int64
	require.NoError(t, db.Model(&domain.PromptVersion{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRestoreVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePrompt(ctx, CreateInput{
		Slug:    "greet",
		Title:   "Greeting",
		Content: "Hello {{name}}",
	})
	require.NoError(t, err)

	_, err = svc.UpdatePrompt(ctx, "greet", UpdateInput{Content: strPtr("Hi there")})
	require.NoError(t, err)

	restored, err := svc.RestoreVersion(ctx, "greet", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Version)
	assert.Equal(t, "Hello {{name}}", restored.Content)
	assert.True(t, restored.IsTemplate)

	// The pre-restore content was snapshotted, so history now holds both.
	v2, err := svc.GetVersion(ctx, "greet", 2)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", v2.Content)
	assert.Contains(t, v2.ChangeNote, "Restored from version 1")

	v1, err := svc.GetVersion(ctx, "greet", 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello {{name}}", v1.Content)

	t.Run("missing version", func(t *testing.T) {
		_, err := svc.RestoreVersion(ctx, "greet", 99)
		assert.ErrorIs(t, err, common.ErrVersionNotFound)
	})

	t.Run("missing prompt", func(t *testing.T) {
		_, err := svc.RestoreVersion(ctx, "missing", 1)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestDeletePrompt(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePrompt(ctx, CreateInput{Slug: "doomed", Title: "T", Content: "v1"})
	require.NoError(t, err)
	_, err = svc.UpdatePrompt(ctx, "doomed", UpdateInput{Content: strPtr("v2")})
	require.NoError(t, err)
	require.Equal(t, int64(1), historyCount(t, db, created.ID))

	require.NoError(t, svc.DeletePrompt(ctx, "doomed"))

	_, err = svc.GetPrompt(ctx, "doomed", false)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, historyCount(t, db, created.ID))

	assert.ErrorIs(t, svc.DeletePrompt(ctx, "doomed"), common.ErrNotFound)
}

func TestRenderPrompt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePrompt(ctx, CreateInput{
		Slug:    "tpl",
		Title:   "T",
		Content: "Review this {{language}} code: {{code}}",
	})
	require.NoError(t, err)

	rendered, p, err := svc.RenderPrompt(ctx, "tpl", map[string]interface{}{
		"language": "Go",
	})
	require.NoError(t, err)
	assert.Equal(t, "Review this Go code: {{code}}", rendered)
	assert.Equal(t, int64(1), p.UsageCount)

	t.Run("unbalanced blocks fail strictly", func(t *testing.T) {
		_, err := svc.CreatePrompt(ctx, CreateInput{
			Slug:    "broken",
			Title:   "T",
			Content: "{% for x in xs %}{{ x }}",
		})
		require.NoError(t, err)

		_, _, err = svc.RenderPrompt(ctx, "broken", nil)
		assert.ErrorIs(t, err, common.ErrTemplateRender)
	})
}

func TestAddNote(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePrompt(ctx, CreateInput{Slug: "noted", Title: "T", Content: "x"})
	require.NoError(t, err)

	p, err := svc.AddNote(ctx, "noted", NoteSuccess, "worked great")
	require.NoError(t, err)
	assert.Equal(t, "worked great", p.SuccessNotes)

	p, err = svc.AddNote(ctx, "noted", NoteSuccess, "again")
	require.NoError(t, err)
	assert.Equal(t, "worked great\n\n---\n\nagain", p.SuccessNotes)

	p, err = svc.AddNote(ctx, "noted", NoteFailure, "missed an edge case")
	require.NoError(t, err)
	assert.Equal(t, "missed an edge case", p.FailureNotes)

	// Notes are metadata only.
	assert.Equal(t, 1, p.Version)
	assert.Zero(t, historyCount(t, db, created.ID))

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.AddNote(ctx, "noted", "maybe", "text")
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("blank text", func(t *testing.T) {
		_, err := svc.AddNote(ctx, "noted", NoteSuccess, "   ")
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestListPrompts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.CreatePrompt(ctx, CreateInput{
			Slug:     fmt.Sprintf("p-%d", i),
			Title:    fmt.Sprintf("Prompt %d", i),
			Content:  "body",
			Category: "bulk",
		})
		require.NoError(t, err)
	}

	prompts, total, err := svc.ListPrompts(ctx, ListInput{Page: 2, PageSize: 2, Sort: "name"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, prompts, 2)
	assert.Equal(t, "p-3", prompts[0].Slug)

	// Out-of-range values normalize instead of erroring.
	prompts, _, err = svc.ListPrompts(ctx, ListInput{Page: -1, PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, prompts, 5)
}
