package service

import (
	"context"
	"time"

	"github.com/promptstash/promptstash/internal/domain"
	"github.com/promptstash/promptstash/pkg/cache"
)

const topN = 5

// Stats aggregates library-wide numbers. Pure read; served from cache
// when available.
func (s *PromptService) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	if s.cacheGet(ctx, cache.KeyStats, &stats) {
		return &stats, nil
	}

	totalPrompts, err := s.prompts.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	totalUsage, err := s.prompts.TotalUsage(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.prompts.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.prompts.TagCounts(ctx)
	if err != nil {
		return nil, err
	}
	mostUsed, err := s.prompts.TopUsed(ctx, topN)
	if err != nil {
		return nil, err
	}
	recentlyUsed, err := s.prompts.RecentlyUsed(ctx, topN)
	if err != nil {
		return nil, err
	}
	recentlyAdded, err := s.prompts.RecentlyAdded(ctx, topN)
	if err != nil {
		return nil, err
	}

	stats = domain.Stats{
		TotalPrompts:    totalPrompts,
		TotalCategories: int64(len(categories)),
		TotalTags:       int64(len(tags)),
		TotalUsage:      totalUsage,
		MostUsed:        mostUsed,
		RecentlyUsed:    recentlyUsed,
		RecentlyAdded:   recentlyAdded,
	}
	s.cacheSet(ctx, cache.KeyStats, &stats, cache.TTLStats)
	return &stats, nil
}

// Categories lists categories with prompt counts, most used first.
func (s *PromptService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	var counts []domain.CategoryCount
	if s.cacheGet(ctx, cache.KeyCategories, &counts) {
		return counts, nil
	}
	counts, err := s.prompts.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cache.KeyCategories, counts, cache.TTLCategories)
	return counts, nil
}

// Tags lists tags with counts, most used first.
func (s *PromptService) Tags(ctx context.Context) ([]domain.TagCount, error) {
	var counts []domain.TagCount
	if s.cacheGet(ctx, cache.KeyTags, &counts) {
		return counts, nil
	}
	counts, err := s.prompts.TagCounts(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cache.KeyTags, counts, cache.TTLTags)
	return counts, nil
}

func (s *PromptService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil || !s.cache.IsAvailable() {
		return false
	}
	return s.cache.Get(ctx, key, dest) == nil
}

func (s *PromptService) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return
	}
	// Best effort; reads recompute on miss.
	_ = s.cache.Set(ctx, key, value, ttl)
}
