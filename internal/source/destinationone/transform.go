package destinationone

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"catalog_sync/internal/domain"
	"catalog_sync/internal/recurrence"
	"catalog_sync/internal/textutil"
)

var rootCategories = map[domain.ContentType]string{
	domain.ContentTypeEvent:  "events",
	domain.ContentTypeTour:   "tours",
	domain.ContentTypePOI:    "points-of-interest",
	domain.ContentTypeGastro: "food-and-drink",
	domain.ContentTypeHotel:  "accommodation",
}

// RootCategorySlug returns the catalog category every item of typ belongs to.
func RootCategorySlug(typ domain.ContentType) string {
	if slug, ok := rootCategories[typ]; ok {
		return slug
	}
	return textutil.Slugify(string(typ))
}

const (
	relDetails      = "details"
	relTeaser       = "teaser"
	relDefault      = "default"
	relImageGallery = "imagegallery"

	mimeHTML  = "text/html"
	mimePlain = "text/plain"

	attrIntervalStart = "interval_start"
	attrIntervalEnd   = "interval_end"
)

// Transform maps one provider item to a catalog listing. facets are the known category values
// for the item's type and mappings are every category mapping whose query returned the item.
// The result depends only on its arguments.
func Transform(
	item Item,
	cfg *domain.IntegrationConfig,
	facets []string,
	mappings []domain.CategoryMapping,
	now time.Time,
) (*domain.Listing, error) {
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return nil, errors.New("item has no id")
	}

	intervals, err := convertIntervals(item.TimeIntervals)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", id, err)
	}

	typ := domain.ContentType(item.Type)
	title := strings.TrimSpace(item.Title)
	content := selectContent(item.Texts, title)
	summary := selectSummary(item.Texts)

	slug := textutil.Slugify(title)
	if slug == "" {
		slug = "item-" + textutil.Slugify(id)
	}

	listing := &domain.Listing{
		Title:          title,
		Summary:        summary,
		Content:        content,
		Slug:           slug,
		ContentType:    typ,
		ExternalSource: domain.ProviderDestinationOne,
		ExternalID:     id,
		SyncHash:       textutil.SyncHash(title, summary, content, intervals),
		PrimaryCityID:  cfg.CityID,
		Address:        joinNonEmpty(", ", item.Street, item.Zip, item.City),
		Phone:          strings.TrimSpace(item.Phone),
		Email:          strings.TrimSpace(item.Email),
		Website:        strings.TrimSpace(item.Web),
		CategorySlugs:  categorySlugs(typ, item.Categories, facets, mappings),
		TimeIntervals:  intervals,
	}

	if item.Geo != nil && item.Geo.Main != nil {
		lat, lon := item.Geo.Main.Latitude, item.Geo.Main.Longitude
		listing.Latitude = &lat
		listing.Longitude = &lon
	}

	listing.HeroImageURL, listing.Gallery = selectMedia(item.MediaObjects)

	if cfg.StoreItemCategoriesAsTags {
		listing.Tags = categoryTags(item.Categories)
	}

	if typ == domain.ContentTypeEvent {
		hintStart, hintEnd, err := intervalHint(item.Attributes, intervalLocation(item.TimeIntervals))
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", id, err)
		}
		window := recurrence.Resolve(hintStart, hintEnd, intervals, now)
		if window.Start != nil {
			listing.EventStart = domain.NewTimestamp(*window.Start)
		}
		if window.End != nil {
			listing.EventEnd = domain.NewTimestamp(*window.End)
		}
	}

	return listing, nil
}

func findText(texts []Text, rel, mime string) string {
	for _, t := range texts {
		if t.Rel == rel && t.Type == mime {
			if v := strings.TrimSpace(t.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

func selectContent(texts []Text, title string) string {
	candidates := [][2]string{
		{relDetails, mimeHTML},
		{relTeaser, mimeHTML},
		{relDetails, mimePlain},
		{relTeaser, mimePlain},
	}
	for _, c := range candidates {
		if v := findText(texts, c[0], c[1]); v != "" {
			return v
		}
	}
	return title
}

func selectSummary(texts []Text) string {
	if v := findText(texts, relTeaser, mimePlain); v != "" {
		return v
	}
	if v := findText(texts, relTeaser, mimeHTML); v != "" {
		return textutil.PlainText(v)
	}
	return ""
}

func selectMedia(objects []MediaObject) (string, []domain.MediaItem) {
	var hero string
	var gallery []domain.MediaItem
	for _, m := range objects {
		if m.URL == "" {
			continue
		}
		switch m.Rel {
		case relDefault:
			if hero == "" {
				hero = m.URL
			}
		case relImageGallery:
			gallery = append(gallery, domain.MediaItem{
				URL:     m.URL,
				Order:   len(gallery),
				Caption: strings.TrimSpace(m.Value),
				Metadata: domain.MediaMetadata{
					Relation: m.Rel,
					MimeType: m.Type,
					Source:   m.Source,
					License:  m.License,
				},
			})
		}
	}
	return hero, gallery
}

// categorySlugs unions the root slug of typ, the targets of every matching mapping and
// "{root}-{value}" for each item category the provider still lists as a facet value.
func categorySlugs(typ domain.ContentType, itemCategories, facets []string, mappings []domain.CategoryMapping) []string {
	root := RootCategorySlug(typ)
	set := make(map[string]struct{})
	add := func(slug string) {
		if slug != "" {
			set[slug] = struct{}{}
		}
	}

	add(root)
	for _, m := range mappings {
		for _, slug := range m.Slugs() {
			add(slug)
		}
	}

	if root != "" && len(facets) > 0 {
		known := make(map[string]struct{}, len(facets))
		for _, f := range facets {
			known[f] = struct{}{}
		}
		for _, c := range itemCategories {
			c = strings.TrimSpace(c)
			if _, ok := known[c]; !ok {
				continue
			}
			if sub := textutil.Slugify(c); sub != "" {
				add(root + "-" + sub)
			}
		}
	}

	slugs := make([]string, 0, len(set))
	for slug := range set {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)
	return slugs
}

func categoryTags(categories []string) []string {
	var tags []string
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(tags, c) {
			continue
		}
		tags = append(tags, c)
	}
	return tags
}

func intervalHint(attrs []Attribute, loc *time.Location) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	for _, attr := range attrs {
		var target **time.Time
		switch attr.Key {
		case attrIntervalStart:
			target = &start
		case attrIntervalEnd:
			target = &end
		default:
			continue
		}
		t, _, err := parseTime(attr.Value, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("attribute %s: %w", attr.Key, err)
		}
		if !t.IsZero() {
			*target = &t
		}
	}
	return start, end, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
