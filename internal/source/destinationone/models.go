package destinationone

// SearchResponse represents the destination.one search API response structure.
type SearchResponse struct {
	Status       string       `json:"status"`
	Count        int          `json:"count"`
	OverallCount int          `json:"overallcount"`
	FacetGroups  []FacetGroup `json:"facetGroups"`
	Items        []Item       `json:"items"`
}

type FacetGroup struct {
	Field  string  `json:"field"`
	Facets []Facet `json:"facets"`
}

type Facet struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Item struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Texts         []Text         `json:"texts"`
	Street        string         `json:"street"`
	Zip           string         `json:"zip"`
	City          string         `json:"city"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email"`
	Web           string         `json:"web"`
	Geo           *Geo           `json:"geo"`
	MediaObjects  []MediaObject  `json:"media_objects"`
	Categories    []string       `json:"categories"`
	TimeIntervals []TimeInterval `json:"timeIntervals"`
	Attributes    []Attribute    `json:"attributes"`
}

// Text is one rendition of an item text. Rel is "details" or "teaser", Type is a MIME type.
type Text struct {
	Rel   string `json:"rel"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Geo struct {
	Main *GeoPoint `json:"main"`
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type MediaObject struct {
	Rel     string `json:"rel"`
	URL     string `json:"url"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Source  string `json:"source"`
	License string `json:"license"`
}

// TimeInterval as delivered by the provider. Times are RFC 3339 or local wall-clock values in TZ.
type TimeInterval struct {
	Weekdays    []string `json:"weekdays"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	TZ          string   `json:"tz"`
	Freq        string   `json:"freq"`
	Interval    int      `json:"interval"`
	RepeatUntil string   `json:"repeatUntil"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Page is one page of search results.
type Page struct {
	Items        []Item
	Count        int
	OverallCount int
}
