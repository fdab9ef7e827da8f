package destinationone

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog_sync/internal/domain"
)

var transformNow = time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

func testConfig() *domain.IntegrationConfig {
	return &domain.IntegrationConfig{
		Provider:   domain.ProviderDestinationOne,
		Enabled:    true,
		Experience: "demo",
		LicenseKey: "secret-key",
		CityID:     "city-1",
	}
}

func jazzNight() Item {
	return Item{
		ID:    "do-1",
		Type:  "Event",
		Title: "Jazz Night",
		TimeIntervals: []TimeInterval{{
			Start: "2025-06-01T20:00:00Z",
			End:   "2025-06-01T23:00:00Z",
			Freq:  "NONE",
		}},
	}
}

func TestTransform_SingleEvent(t *testing.T) {
	listing, err := Transform(jazzNight(), testConfig(), nil, nil, transformNow)
	require.NoError(t, err)

	assert.Equal(t, "Jazz Night", listing.Title)
	assert.Equal(t, "jazz-night", listing.Slug)
	assert.Equal(t, domain.ContentTypeEvent, listing.ContentType)
	assert.Equal(t, domain.ProviderDestinationOne, listing.ExternalSource)
	assert.Equal(t, "do-1", listing.ExternalID)
	assert.Equal(t, "city-1", listing.PrimaryCityID)
	assert.Equal(t, "Jazz Night", listing.Content)
	assert.Equal(t, []string{"events"}, listing.CategorySlugs)

	require.NotNil(t, listing.EventStart)
	require.NotNil(t, listing.EventEnd)
	assert.Equal(t, "2025-06-01T20:00:00.000Z", listing.EventStart.String())
	assert.Equal(t, "2025-06-01T23:00:00.000Z", listing.EventEnd.String())
	assert.NotEmpty(t, listing.SyncHash)
}

func TestTransform_IsDeterministic(t *testing.T) {
	cfg := testConfig()
	mappings := []domain.CategoryMapping{{TargetCategorySlug: "music", TargetSubcategorySlug: "jazz"}}

	first, err := Transform(jazzNight(), cfg, []string{"Konzert"}, mappings, transformNow)
	require.NoError(t, err)
	second, err := Transform(jazzNight(), cfg, []string{"Konzert"}, mappings, transformNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTransform_SyncHashTracksContent(t *testing.T) {
	cfg := testConfig()
	base, err := Transform(jazzNight(), cfg, nil, nil, transformNow)
	require.NoError(t, err)

	retitled := jazzNight()
	retitled.Title = "Jazz Night Special"
	changed, err := Transform(retitled, cfg, nil, nil, transformNow)
	require.NoError(t, err)

	moved := jazzNight()
	moved.Phone = "+49 30 123"
	sameContent, err := Transform(moved, cfg, nil, nil, transformNow)
	require.NoError(t, err)

	assert.NotEqual(t, base.SyncHash, changed.SyncHash)
	assert.Equal(t, base.SyncHash, sameContent.SyncHash)
}

func TestTransform_Texts(t *testing.T) {
	tests := []struct {
		name        string
		texts       []Text
		wantContent string
		wantSummary string
	}{
		{
			name: "details html preferred",
			texts: []Text{
				{Rel: "teaser", Type: "text/plain", Value: "Short"},
				{Rel: "details", Type: "text/plain", Value: "Long plain"},
				{Rel: "details", Type: "text/html", Value: "<p>Long html</p>"},
			},
			wantContent: "<p>Long html</p>",
			wantSummary: "Short",
		},
		{
			name: "teaser html before details plain",
			texts: []Text{
				{Rel: "details", Type: "text/plain", Value: "Long plain"},
				{Rel: "teaser", Type: "text/html", Value: "<p>Short <b>html</b></p>"},
			},
			wantContent: "<p>Short <b>html</b></p>",
			wantSummary: "Short html",
		},
		{
			name:        "title fallback",
			texts:       []Text{{Rel: "details", Type: "text/html", Value: "   "}},
			wantContent: "Jazz Night",
			wantSummary: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := jazzNight()
			item.Texts = tt.texts

			listing, err := Transform(item, testConfig(), nil, nil, transformNow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, listing.Content)
			assert.Equal(t, tt.wantSummary, listing.Summary)
		})
	}
}

func TestTransform_CategorySlugs(t *testing.T) {
	item := Item{
		ID:         "do-2",
		Type:       "POI",
		Title:      "Stadtmuseum",
		Categories: []string{"Museum", "Unbekannt", "Ausstellung"},
	}
	mappings := []domain.CategoryMapping{
		{TargetCategorySlug: "culture", TargetSubcategorySlug: "museums"},
		{TargetCategorySlug: "culture"},
	}

	listing, err := Transform(item, testConfig(), []string{"Ausstellung", "Museum"}, mappings, transformNow)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"culture",
		"museums",
		"points-of-interest",
		"points-of-interest-ausstellung",
		"points-of-interest-museum",
	}, listing.CategorySlugs)
	assert.Nil(t, listing.EventStart)
	assert.Nil(t, listing.Tags)
}

func TestTransform_CategoriesAsTags(t *testing.T) {
	cfg := testConfig()
	cfg.StoreItemCategoriesAsTags = true

	item := jazzNight()
	item.Categories = []string{"Konzert", " Jazz ", "Konzert", ""}

	listing, err := Transform(item, cfg, nil, nil, transformNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Konzert", "Jazz"}, listing.Tags)
}

func TestTransform_MediaAndContact(t *testing.T) {
	item := jazzNight()
	item.Street = "Hauptstraße 1"
	item.Zip = "10115"
	item.City = "Berlin"
	item.Email = " info@example.org "
	item.Geo = &Geo{Main: &GeoPoint{Latitude: 52.52, Longitude: 13.405}}
	item.MediaObjects = []MediaObject{
		{Rel: "imagegallery", URL: "https://img/1.jpg", Type: "image/jpeg", Value: "Stage", License: "CC-BY"},
		{Rel: "default", URL: "https://img/hero.jpg"},
		{Rel: "default", URL: "https://img/other.jpg"},
		{Rel: "imagegallery", URL: ""},
		{Rel: "imagegallery", URL: "https://img/2.jpg"},
	}

	listing, err := Transform(item, testConfig(), nil, nil, transformNow)
	require.NoError(t, err)

	assert.Equal(t, "Hauptstraße 1, 10115, Berlin", listing.Address)
	assert.Equal(t, "info@example.org", listing.Email)
	require.NotNil(t, listing.Latitude)
	assert.InDelta(t, 52.52, *listing.Latitude, 1e-9)
	assert.Equal(t, "https://img/hero.jpg", listing.HeroImageURL)
	require.Len(t, listing.Gallery, 2)
	assert.Equal(t, 0, listing.Gallery[0].Order)
	assert.Equal(t, "Stage", listing.Gallery[0].Caption)
	assert.Equal(t, "CC-BY", listing.Gallery[0].Metadata.License)
	assert.Equal(t, 1, listing.Gallery[1].Order)
}

func TestTransform_SlugFallsBackToID(t *testing.T) {
	item := jazzNight()
	item.Title = "  "

	listing, err := Transform(item, testConfig(), nil, nil, transformNow)
	require.NoError(t, err)
	assert.Equal(t, "item-do-1", listing.Slug)
}

func TestTransform_RequiresID(t *testing.T) {
	item := jazzNight()
	item.ID = ""

	_, err := Transform(item, testConfig(), nil, nil, transformNow)
	assert.Error(t, err)
}

func TestTransform_IntervalHint(t *testing.T) {
	t.Run("upcoming hint is used", func(t *testing.T) {
		item := jazzNight()
		item.Attributes = []Attribute{
			{Key: "interval_start", Value: "2025-05-25T18:00:00Z"},
			{Key: "interval_end", Value: "2025-05-25T21:00:00Z"},
		}

		listing, err := Transform(item, testConfig(), nil, nil, transformNow)
		require.NoError(t, err)
		assert.Equal(t, "2025-05-25T18:00:00.000Z", listing.EventStart.String())
		assert.Equal(t, "2025-05-25T21:00:00.000Z", listing.EventEnd.String())
	})

	t.Run("past hint is ignored", func(t *testing.T) {
		item := jazzNight()
		item.Attributes = []Attribute{
			{Key: "interval_start", Value: "2025-04-01T18:00:00Z"},
			{Key: "interval_end", Value: "2025-04-01T21:00:00Z"},
		}

		listing, err := Transform(item, testConfig(), nil, nil, transformNow)
		require.NoError(t, err)
		assert.Equal(t, "2025-06-01T20:00:00.000Z", listing.EventStart.String())
	})
}

func TestTransform_PastOnlyEventHasNoWindow(t *testing.T) {
	item := jazzNight()
	item.TimeIntervals = []TimeInterval{{Start: "2025-04-01T20:00:00Z", End: "2025-04-01T23:00:00Z"}}

	listing, err := Transform(item, testConfig(), nil, nil, transformNow)
	require.NoError(t, err)
	assert.Nil(t, listing.EventStart)
	assert.Nil(t, listing.EventEnd)
	assert.Len(t, listing.TimeIntervals, 1)
}

func TestConvertInterval(t *testing.T) {
	t.Run("local wall clock in zone", func(t *testing.T) {
		iv, ok, err := convertInterval(TimeInterval{
			Weekdays:    []string{"Monday", "wednesday", "someday"},
			Start:       "2025-03-24T19:00:00",
			End:         "2025-03-24T21:00:00",
			TZ:          "Europe/Berlin",
			Freq:        "weekly",
			RepeatUntil: "2025-12-31",
		})
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, time.Date(2025, 3, 24, 18, 0, 0, 0, time.UTC), iv.Start)
		assert.Equal(t, time.Date(2025, 3, 24, 20, 0, 0, 0, time.UTC), iv.End)
		assert.Equal(t, "Europe/Berlin", iv.Timezone)
		assert.Equal(t, domain.FrequencyWeekly, iv.Frequency)
		assert.Equal(t, 1, iv.Interval)
		assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, iv.Weekdays)
		require.NotNil(t, iv.RepeatUntil)
		assert.Equal(t, time.Date(2025, 12, 31, 22, 59, 59, 999999999, time.UTC), *iv.RepeatUntil)
	})

	t.Run("date only end covers the whole day", func(t *testing.T) {
		iv, ok, err := convertInterval(TimeInterval{Start: "2025-07-01", End: "2025-07-03"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), iv.End)
	})

	t.Run("missing start is dropped", func(t *testing.T) {
		_, ok, err := convertInterval(TimeInterval{End: "2025-07-03"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown frequency and zone", func(t *testing.T) {
		iv, ok, err := convertInterval(TimeInterval{Start: "2025-07-01T10:00:00Z", Freq: "hourly", TZ: "Mars/Olympus"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.FrequencyNone, iv.Frequency)
		assert.Empty(t, iv.Timezone)
	})

	t.Run("garbage start fails", func(t *testing.T) {
		_, _, err := convertInterval(TimeInterval{Start: "tomorrow"})
		assert.Error(t, err)
	})
}
