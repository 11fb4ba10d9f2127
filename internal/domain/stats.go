package domain

// Stats aggregates library-wide usage numbers. Pure read model.
type Stats struct {
	TotalPrompts    int64     `json:"total_prompts"`
	TotalCategories int64     `json:"total_categories"`
	TotalTags       int64     `json:"total_tags"`
	TotalUsage      int64     `json:"total_usage"`
	MostUsed        []*Prompt `json:"most_used"`
	RecentlyUsed    []*Prompt `json:"recently_used"`
	RecentlyAdded   []*Prompt `json:"recently_added"`
}

// CategoryCount is one category with its prompt count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// TagCount is one tag with the number of prompts carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}
