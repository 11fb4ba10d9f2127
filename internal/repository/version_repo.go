package repository

import (
	"context"

	"github.com/promptstash/promptstash/internal/common"
	"github.com/promptstash/promptstash/internal/domain"
	"gorm.io/gorm"
)

// VersionRepository is the append-only store of prior content snapshots.
// Rows are never updated after Snapshot.
type VersionRepository interface {
	WithTx(tx *gorm.DB) VersionRepository
	Snapshot(ctx context.Context, v *domain.PromptVersion) error
	ListByPrompt(ctx context.Context, promptID string) ([]*domain.PromptVersion, error)
	GetByPromptAndVersion(ctx context.Context, promptID string, version int) (*domain.PromptVersion, error)
	DeleteByPrompt(ctx context.Context, promptID string) error
}

type versionRepository struct {
	db *gorm.DB
}

// NewVersionRepository creates a VersionRepository backed by db.
func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{db: db}
}

func (r *versionRepository) WithTx(tx *gorm.DB) VersionRepository {
	return &versionRepository{db: tx}
}

func (r *versionRepository) Snapshot(ctx context.Context, v *domain.PromptVersion) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		if isDuplicateKey(err) {
			return common.ErrDuplicateVersion
		}
		return err
	}
	return nil
}

func (r *versionRepository) ListByPrompt(ctx context.Context, promptID string) ([]*domain.PromptVersion, error) {
	var versions []*domain.PromptVersion
	err := r.db.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}

func (r *versionRepository) GetByPromptAndVersion(ctx context.Context, promptID string, version int) (*domain.PromptVersion, error) {
	var v domain.PromptVersion
	err := r.db.WithContext(ctx).
		Where("prompt_id = ? AND version = ?", promptID, version).
		First(&v).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.ErrVersionNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *versionRepository) DeleteByPrompt(ctx context.Context, promptID string) error {
	return r.db.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Delete(&domain.PromptVersion{}).Error
}
