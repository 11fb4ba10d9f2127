package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/promptstash/promptstash/internal/common"
	"github.com/promptstash/promptstash/internal/domain"
	"gorm.io/gorm"
)

const (
	// DefaultPageSize is used when the caller asks for no or a non-positive limit.
	DefaultPageSize = 20
	// MaxPageSize bounds response size regardless of what the caller asks for.
	MaxPageSize = 100
)

// Sort orders accepted by List.
const (
	SortRecent  = "recent"  // updated_at desc (default)
	SortCreated = "created" // created_at desc
	SortUsed    = "used"    // last_used_at desc, nulls last
	SortPopular = "popular" // usage_count desc
	SortName    = "name"    // slug asc
)

// ListFilter is the query surface for List. Zero values mean "no filter".
type ListFilter struct {
	Category string
	Tags     []string // match-any
	Query    string   // case-insensitive substring over title/content/description
	Sort     string
	Offset   int
	Limit    int
}

// PromptRepository is the CRUD + query surface over prompt rows.
type PromptRepository interface {
	WithTx(tx *gorm.DB) PromptRepository
	Create(ctx context.Context, p *domain.Prompt) error
	FindBySlug(ctx context.Context, slug string) (*domain.Prompt, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateFields(ctx context.Context, slug string, fields map[string]interface{}) error
	UpdateGuarded(ctx context.Context, slug string, expectedVersion int, fields map[string]interface{}) error
	Delete(ctx context.Context, slug string) error
	List(ctx context.Context, f ListFilter) ([]*domain.Prompt, int64, error)
	IncrementUsage(ctx context.Context, slug string) error
	Random(ctx context.Context, category string) (*domain.Prompt, error)

	CountAll(ctx context.Context) (int64, error)
	TotalUsage(ctx context.Context) (int64, error)
	TopUsed(ctx context.Context, n int) ([]*domain.Prompt, error)
	RecentlyUsed(ctx context.Context, n int) ([]*domain.Prompt, error)
	RecentlyAdded(ctx context.Context, n int) ([]*domain.Prompt, error)
	CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error)
	TagCounts(ctx context.Context) ([]domain.TagCount, error)
}

type promptRepository struct {
	db *gorm.DB
}

// NewPromptRepository creates a PromptRepository backed by db.
func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &promptRepository{db: db}
}

func (r *promptRepository) WithTx(tx *gorm.DB) PromptRepository {
	return &promptRepository{db: tx}
}

func (r *promptRepository) Create(ctx context.Context, p *domain.Prompt) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isDuplicateKey(err) {
			return common.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *promptRepository) FindBySlug(ctx context.Context, slug string) (*domain.Prompt, error) {
	var p domain.Prompt
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *promptRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Prompt{}).
		Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *promptRepository) UpdateFields(ctx context.Context, slug string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Prompt{}).
		Where("slug = ?", slug).
		Updates(fields).Error
}

// UpdateGuarded applies fields only if the stored version still equals
// expectedVersion. Zero rows affected means a concurrent writer claimed
// the version slot first.
func (r *promptRepository) UpdateGuarded(ctx context.Context, slug string, expectedVersion int, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.Prompt{}).
		Where("slug = ? AND version = ?", slug, expectedVersion).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrConflict
	}
	return nil
}

func (r *promptRepository) Delete(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).Where("slug = ?", slug).Delete(&domain.Prompt{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *promptRepository) List(ctx context.Context, f ListFilter) ([]*domain.Prompt, int64, error) {
	query := r.filtered(ctx, f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	switch f.Sort {
	case SortPopular:
		query = query.Order("usage_count DESC")
	case SortUsed:
		query = query.Order("last_used_at IS NULL").Order("last_used_at DESC")
	case SortCreated:
		query = query.Order("created_at DESC")
	case SortName:
		query = query.Order("slug ASC")
	default: // SortRecent
		query = query.Order("updated_at DESC")
	}

	var prompts []*domain.Prompt
	if err := query.Offset(offset).Limit(limit).Find(&prompts).Error; err != nil {
		return nil, 0, err
	}
	return prompts, total, nil
}

func (r *promptRepository) filtered(ctx context.Context, f ListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&domain.Prompt{})

	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}

	if len(f.Tags) > 0 {
		// Tags live in a JSON array column; a prompt matches when it
		// carries at least one requested tag.
		var conds []string
		var args []interface{}
		for _, tag := range f.Tags {
			conds = append(conds, "tags LIKE ?")
			args = append(args, fmt.Sprintf(`%%"%s"%%`, tag))
		}
		query = query.Where(strings.Join(conds, " OR "), args...)
	}

	if f.Query != "" {
		pattern := "%" + strings.ToLower(f.Query) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	return query
}

// IncrementUsage bumps usage_count and last_used_at without touching
// updated_at or version: usage is not a content change.
func (r *promptRepository) IncrementUsage(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).Model(&domain.Prompt{}).
		Where("slug = ?", slug).
		UpdateColumns(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Random picks uniformly among matching rows via a random offset, which
// behaves the same on MySQL and SQLite.
func (r *promptRepository) Random(ctx context.Context, category string) (*domain.Prompt, error) {
	query := r.db.WithContext(ctx).Model(&domain.Prompt{})
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, common.ErrNotFound
	}

	var p domain.Prompt
	if err := query.Offset(rand.IntN(int(count))).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promptRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Prompt{}).Count(&count).Error
	return count, err
}

func (r *promptRepository) TotalUsage(ctx context.Context) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).Model(&domain.Prompt{}).
		Select("SUM(usage_count)").Scan(&total).Error
	if err != nil || total == nil {
		return 0, err
	}
	return *total, nil
}

func (r *promptRepository) TopUsed(ctx context.Context, n int) ([]*domain.Prompt, error) {
	var prompts []*domain.Prompt
	err := r.db.WithContext(ctx).Order("usage_count DESC").Limit(n).Find(&prompts).Error
	return prompts, err
}

func (r *promptRepository) RecentlyUsed(ctx context.Context, n int) ([]*domain.Prompt, error) {
	var prompts []*domain.Prompt
	err := r.db.WithContext(ctx).
		Where("last_used_at IS NOT NULL").
		Order("last_used_at DESC").Limit(n).Find(&prompts).Error
	return prompts, err
}

func (r *promptRepository) RecentlyAdded(ctx context.Context, n int) ([]*domain.Prompt, error) {
	var prompts []*domain.Prompt
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(n).Find(&prompts).Error
	return prompts, err
}

func (r *promptRepository) CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error) {
	var counts []domain.CategoryCount
	err := r.db.WithContext(ctx).Model(&domain.Prompt{}).
		Select("category, COUNT(id) AS count").
		Where("category IS NOT NULL AND category != ''").
		Group("category").
		Order("count DESC").
		Scan(&counts).Error
	return counts, err
}

// TagCounts aggregates in Go since tags are stored as JSON arrays.
func (r *promptRepository) TagCounts(ctx context.Context) ([]domain.TagCount, error) {
	var rows []domain.StringList
	err := r.db.WithContext(ctx).Model(&domain.Prompt{}).
		Pluck("tags", &rows).Error
	if err != nil {
		return nil, err
	}

	byTag := map[string]int64{}
	for _, tags := range rows {
		for _, tag := range tags {
			byTag[tag]++
		}
	}

	counts := make([]domain.TagCount, 0, len(byTag))
	for tag, count := range byTag {
		counts = append(counts, domain.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Tag < counts[j].Tag
	})
	return counts, nil
}
