package catalog

// Wire types for the Google Books volumes API. Only the fields we map
// are declared.

type volumesResponse struct {
	Items []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	ImageLinks          imageLinks           `json:"imageLinks"`
	Categories          []string             `json:"categories"`
	AverageRating       float64              `json:"averageRating"`
	PageCount           int                  `json:"pageCount"`
	IndustryIdentifiers []industryIdentifier `json:"industryIdentifiers"`
	InfoLink            string               `json:"infoLink"`
}

type imageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

type industryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// SearchResult is one book in a catalog search. The JSON field names
// are a wire contract with the front end; don't rename them.
type SearchResult struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	CoverImage    string   `json:"coverImage,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Description   string   `json:"description,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
}

// Recommendation is a genre-matched suggestion.
type Recommendation struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	CoverImage  string   `json:"coverImage,omitempty"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	MatchReason string   `json:"matchReason"`
}

// Release is a recently published book in a genre.
type Release struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	CoverImage    string   `json:"coverImage,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Description   string   `json:"description,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	Link          string   `json:"link,omitempty"`
}
