package model

// ScrapedPage is the parsed form of one fetched page. It lives only for
// the duration of a run and is never persisted.
type ScrapedPage struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	IsWordPress bool   `json:"is_wordpress"`
	Rendered    bool   `json:"rendered,omitempty"` // content came from the render fallback
	StatusCode  int    `json:"status_code"`
}
