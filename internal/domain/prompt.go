package domain

import "time"

// Prompt is a stored prompt record. Slug is the immutable lookup key;
// Version counts content-changing updates and starts at 1.
type Prompt struct {
	ID           string       `gorm:"column:id;primaryKey;size:36" json:"id"`
	Slug         string       `gorm:"column:slug;size:255;not null;uniqueIndex" json:"slug"`
	Title        string       `gorm:"column:title;size:500;not null" json:"title"`
	Content      string       `gorm:"column:content;type:text;not null" json:"content"`
	Description  string       `gorm:"column:description;type:text" json:"description,omitempty"`
	Category     string       `gorm:"column:category;size:100;index" json:"category,omitempty"`
	Tags         StringList   `gorm:"column:tags;type:json" json:"tags"`
	SourceURL    string       `gorm:"column:source_url;size:2000" json:"source_url,omitempty"`
	IsTemplate   bool         `gorm:"column:is_template" json:"is_template"`
	TemplateVars TemplateVars `gorm:"column:template_vars;type:json" json:"template_vars"`
	UsageCount   int64        `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	LastUsedAt   *time.Time   `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	SuccessNotes string       `gorm:"column:success_notes;type:text" json:"success_notes,omitempty"`
	FailureNotes string       `gorm:"column:failure_notes;type:text" json:"failure_notes,omitempty"`
	RelatedSlugs StringList   `gorm:"column:related_slugs;type:json" json:"related_slugs"`
	Version      int          `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Prompt) TableName() string {
	return "prompts"
}

// PromptVersion is an immutable snapshot of a prompt's content taken
// just before that content was overwritten. (PromptID, Version) is unique;
// Version matches the prompt's version number at snapshot time.
type PromptVersion struct {
	ID         string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	PromptID   string    `gorm:"column:prompt_id;size:36;not null;uniqueIndex:idx_prompt_version;index" json:"prompt_id"`
	Version    int       `gorm:"column:version;not null;uniqueIndex:idx_prompt_version" json:"version"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	ChangedAt  time.Time `gorm:"column:changed_at;autoCreateTime" json:"changed_at"`
	ChangeNote string    `gorm:"column:change_note;size:500" json:"change_note,omitempty"`
}

func (PromptVersion) TableName() string {
	return "prompt_versions"
}

// TemplateVar describes one variable referenced by a template prompt.
type TemplateVar struct {
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// TemplateVars maps variable name to its metadata. Always derived from
// content by the service; never set by callers.
type TemplateVars map[string]TemplateVar
