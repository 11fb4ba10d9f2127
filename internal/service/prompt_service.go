package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/promptstash/promptstash/internal/common"
	"github.com/promptstash/promptstash/internal/domain"
	"github.com/promptstash/promptstash/internal/repository"
	"github.com/promptstash/promptstash/internal/template"
	"github.com/promptstash/promptstash/pkg/cache"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// PromptService orchestrates the prompt repository, the version store and
// the template engine. It owns the content lifecycle: version 1 is the
// live content with no history row; every content-changing update first
// snapshots the old content at the old version, then bumps the version.
type PromptService struct {
	db       *gorm.DB
	prompts  repository.PromptRepository
	versions repository.VersionRepository
	engine   *template.Engine
	cache    cache.Service
	validate *validator.Validate
}

// NewPromptService creates a PromptService. cacheSvc may be nil.
func NewPromptService(db *gorm.DB, prompts repository.PromptRepository, versions repository.VersionRepository, cacheSvc cache.Service) *PromptService {
	v := validator.New()
	_ = v.RegisterValidation("slugfmt", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return &PromptService{
		db:       db,
		prompts:  prompts,
		versions: versions,
		engine:   template.NewEngine(),
		cache:    cacheSvc,
		validate: v,
	}
}

// CreateInput holds the fields for a new prompt. Slug is optional; when
// empty one is derived from the title.
type CreateInput struct {
	Slug         string   `validate:"omitempty,max=255,slugfmt"`
	Title        string   `validate:"required,min=1,max=500"`
	Content      string   `validate:"required,min=1"`
	Description  string   `validate:"-"`
	Category     string   `validate:"omitempty,max=100"`
	Tags         []string `validate:"-"`
	SourceURL    string   `validate:"omitempty,max=2000"`
	SuccessNotes string   `validate:"-"`
	FailureNotes string   `validate:"-"`
	RelatedSlugs []string `validate:"-"`
}

// UpdateInput is a partial update: every field is independently
// present-or-absent so the "content changed?" decision is structural.
type UpdateInput struct {
	Title        *string   `validate:"omitempty,min=1,max=500"`
	Content      *string   `validate:"omitempty,min=1"`
	Description  *string   `validate:"-"`
	Category     *string   `validate:"omitempty,max=100"`
	Tags         *[]string `validate:"-"`
	SourceURL    *string   `validate:"omitempty,max=2000"`
	SuccessNotes *string   `validate:"-"`
	FailureNotes *string   `validate:"-"`
	RelatedSlugs *[]string `validate:"-"`
	ChangeNote   string    `validate:"omitempty,max=500"`
}

// CreatePrompt stores a new prompt at version 1. Template flags are
// always derived from content, never taken from the caller.
func (s *PromptService) CreatePrompt(ctx context.Context, in CreateInput) (*domain.Prompt, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	promptSlug := in.Slug
	if promptSlug == "" {
		derived, err := s.deriveSlug(ctx, in.Title)
		if err != nil {
			return nil, err
		}
		promptSlug = derived
	} else {
		exists, err := s.prompts.SlugExists(ctx, promptSlug)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, common.ErrDuplicateSlug
		}
	}

	isTemplate, templateVars := s.inspectContent(in.Content)

	p := &domain.Prompt{
		ID:           uuid.New().String(),
		Slug:         promptSlug,
		Title:        in.Title,
		Content:      in.Content,
		Description:  in.Description,
		Category:     in.Category,
		Tags:         domain.StringList(in.Tags),
		SourceURL:    in.SourceURL,
		IsTemplate:   isTemplate,
		TemplateVars: templateVars,
		SuccessNotes: in.SuccessNotes,
		FailureNotes: in.FailureNotes,
		RelatedSlugs: domain.StringList(in.RelatedSlugs),
		Version:      1,
	}

	if err := s.prompts.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateAggregates(ctx)
	return p, nil
}

// deriveSlug slugifies the title and suffixes -2, -3... until unique.
// Only auto-derived slugs get suffixed; explicit slugs fail on collision.
func (s *PromptService) deriveSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		return "", fmt.Errorf("%w: cannot derive slug from title", common.ErrValidation)
	}
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.prompts.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// GetPrompt fetches a prompt, optionally counting the fetch as a use.
func (s *PromptService) GetPrompt(ctx context.Context, promptSlug string, incrementUsage bool) (*domain.Prompt, error) {
	if incrementUsage {
		if err := s.prompts.IncrementUsage(ctx, promptSlug); err != nil {
			return nil, err
		}
		s.invalidateAggregates(ctx)
	}
	return s.prompts.FindBySlug(ctx, promptSlug)
}

// UpdatePrompt applies a partial update. When content is present and
// differs from the stored value, the old content is snapshotted at the
// old version and the version bumps by exactly one, atomically; metadata
// edits never touch version or history.
func (s *PromptService) UpdatePrompt(ctx context.Context, promptSlug string, in UpdateInput) (*domain.Prompt, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	p, err := s.prompts.FindBySlug(ctx, promptSlug)
	if err != nil {
		return nil, err
	}

	fields := metadataFields(in)
	contentChanged := in.Content != nil && *in.Content != p.Content

	if !contentChanged {
		if len(fields) == 0 {
			return p, nil
		}
		if err := s.prompts.UpdateFields(ctx, promptSlug, fields); err != nil {
			return nil, err
		}
		s.invalidateAggregates(ctx)
		return s.prompts.FindBySlug(ctx, promptSlug)
	}

	isTemplate, templateVars := s.inspectContent(*in.Content)
	fields["content"] = *in.Content
	fields["version"] = p.Version + 1
	fields["is_template"] = isTemplate
	fields["template_vars"] = templateVars

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarded write first: winning the version slot row-locks the
		// prompt until commit, so the snapshot below cannot race.
		if err := s.prompts.WithTx(tx).UpdateGuarded(ctx, promptSlug, p.Version, fields); err != nil {
			return err
		}
		return s.versions.WithTx(tx).Snapshot(ctx, &domain.PromptVersion{
			ID:         uuid.New().String(),
			PromptID:   p.ID,
			Version:    p.Version,
			Content:    p.Content,
			ChangeNote: in.ChangeNote,
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAggregates(ctx)
	return s.prompts.FindBySlug(ctx, promptSlug)
}

// metadataFields collects the non-content column updates from in.
func metadataFields(in UpdateInput) map[string]interface{} {
	fields := map[string]interface{}{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Tags != nil {
		fields["tags"] = domain.StringList(*in.Tags)
	}
	if in.SourceURL != nil {
		fields["source_url"] = *in.SourceURL
	}
	if in.SuccessNotes != nil {
		fields["success_notes"] = *in.SuccessNotes
	}
	if in.FailureNotes != nil {
		fields["failure_notes"] = *in.FailureNotes
	}
	if in.RelatedSlugs != nil {
		fields["related_slugs"] = domain.StringList(*in.RelatedSlugs)
	}
	return fields
}

// DeletePrompt removes a prompt and its history as one unit.
func (s *PromptService) DeletePrompt(ctx context.Context, promptSlug string) error {
	p, err := s.prompts.FindBySlug(ctx, promptSlug)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.versions.WithTx(tx).DeleteByPrompt(ctx, p.ID); err != nil {
			return err
		}
		return s.prompts.WithTx(tx).Delete(ctx, promptSlug)
	})
	if err != nil {
		return err
	}
	s.invalidateAggregates(ctx)
	return nil
}

// ListInput is the query surface for ListPrompts.
type ListInput struct {
	Page     int
	PageSize int
	Category string
	Tags     []string
	Query    string
	Sort     string
}

// ListPrompts returns a page of prompts plus the total match count.
func (s *PromptService) ListPrompts(ctx context.Context, in ListInput) ([]*domain.Prompt, int64, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = repository.DefaultPageSize
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	return s.prompts.List(ctx, repository.ListFilter{
		Category: in.Category,
		Tags:     in.Tags,
		Query:    in.Query,
		Sort:     in.Sort,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	})
}

// RenderPrompt fetches a prompt, counts the use, and renders its content
// with the given bindings. Unbound variables stay as literal markers.
func (s *PromptService) RenderPrompt(ctx context.Context, promptSlug string, bindings map[string]interface{}) (string, *domain.Prompt, error) {
	p, err := s.GetPrompt(ctx, promptSlug, true)
	if err != nil {
		return "", nil, err
	}
	rendered, err := s.engine.Render(p.Content, bindings)
	if err != nil {
		return "", nil, err
	}
	return rendered, p, nil
}

// ListVersions returns a prompt's history, newest first.
func (s *PromptService) ListVersions(ctx context.Context, promptSlug string) ([]*domain.PromptVersion, error) {
	p, err := s.prompts.FindBySlug(ctx, promptSlug)
	if err != nil {
		return nil, err
	}
	return s.versions.ListByPrompt(ctx, p.ID)
}

// GetVersion returns one history entry.
func (s *PromptService) GetVersion(ctx context.Context, promptSlug string, version int) (*domain.PromptVersion, error) {
	p, err := s.prompts.FindBySlug(ctx, promptSlug)
	if err != nil {
		return nil, err
	}
	return s.versions.GetByPromptAndVersion(ctx, p.ID, version)
}

// RestoreVersion copies a historical content back into the live prompt.
// The restore is itself a content-changing update: the current content is
// snapshotted and the version bumps, keeping history append-only and
// gap-free even though the content is old.
func (s *PromptService) RestoreVersion(ctx context.Context, promptSlug string, version int) (*domain.Prompt, error) {
	p, err := s.prompts.FindBySlug(ctx, promptSlug)
	if err != nil {
		return nil, err
	}
	target, err := s.versions.GetByPromptAndVersion(ctx, p.ID, version)
	if err != nil {
		return nil, err
	}

	isTemplate, templateVars := s.inspectContent(target.Content)
	fields := map[string]interface{}{
		"content":       target.Content,
		"version":       p.Version + 1,
		"is_template":   isTemplate,
		"template_vars": templateVars,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.prompts.WithTx(tx).UpdateGuarded(ctx, promptSlug, p.Version, fields); err != nil {
			return err
		}
		return s.versions.WithTx(tx).Snapshot(ctx, &domain.PromptVersion{
			ID:         uuid.New().String(),
			PromptID:   p.ID,
			Version:    p.Version,
			Content:    p.Content,
			ChangeNote: fmt.Sprintf("Restored from version %d", version),
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAggregates(ctx)
	return s.prompts.FindBySlug(ctx, promptSlug)
}

// Note kinds accepted by AddNote.
const (
	NoteSuccess = "success"
	NoteFailure = "failure"
)

// AddNote appends free text to the success or failure notes. Notes are
// metadata: no version bump, no history row.
func (s *PromptService) AddNote(ctx context.Context, promptSlug, kind, text string) (*domain.Prompt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: note text is empty", common.ErrValidation)
	}

	p, err := s.prompts.FindBySlug(ctx, promptSlug)
	if err != nil {
		return nil, err
	}

	var column, existing string
	switch kind {
	case NoteSuccess:
		column, existing = "success_notes", p.SuccessNotes
	case NoteFailure:
		column, existing = "failure_notes", p.FailureNotes
	default:
		return nil, fmt.Errorf("%w: unknown note kind %q", common.ErrValidation, kind)
	}

	value := text
	if existing != "" {
		value = existing + "\n\n---\n\n" + text
	}
	if err := s.prompts.UpdateFields(ctx, promptSlug, map[string]interface{}{column: value}); err != nil {
		return nil, err
	}
	return s.prompts.FindBySlug(ctx, promptSlug)
}

// RandomPrompt picks a uniform-random prompt, optionally within a
// category. No matches — filtered or not — is ErrNotFound.
func (s *PromptService) RandomPrompt(ctx context.Context, category string) (*domain.Prompt, error) {
	return s.prompts.Random(ctx, category)
}

// inspectContent derives the template flag and variable metadata from
// content. Never fails: malformed template syntax still detects as a
// template with whatever variables the scanner found.
func (s *PromptService) inspectContent(content string) (bool, domain.TemplateVars) {
	isTemplate := s.engine.Detect(content)
	vars := domain.TemplateVars{}
	if isTemplate {
		for _, name := range s.engine.ExtractVariables(content) {
			vars[name] = domain.TemplateVar{Type: "string", Required: true}
		}
	}
	return isTemplate, vars
}

func (s *PromptService) invalidateAggregates(ctx context.Context) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return
	}
	// Cache errors never fail the write; the TTL bounds staleness.
	_ = s.cache.InvalidateAggregates(ctx)
}
