package models

// SiteContent is everything the practice page displays besides the form.
type SiteContent struct {
	Metadata    PageMetadata  `json:"metadata"`
	Practice    Practice      `json:"practice"`
	Hero        Hero          `json:"hero"`
	OfficeHours []OfficeHours `json:"office_hours"`
	Services    []Service     `json:"services"`
	FAQs        []FAQ         `json:"faqs"`
}

type PageMetadata struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	OpenGraph   OpenGraph `json:"open_graph"`
}

type OpenGraph struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type Practice struct {
	Name            string   `json:"name"`
	Credentials     string   `json:"credentials"`
	Title           string   `json:"title"`
	City            string   `json:"city"`
	Address         string   `json:"address"`
	PostalCode      string   `json:"postal_code"`
	Phone           string   `json:"phone"`
	Email           string   `json:"email"`
	YearsExperience int      `json:"years_experience"`
	SessionsCount   string   `json:"sessions_count"`
	PhotoURL        string   `json:"photo_url"`
	Bio             []string `json:"bio"`
}

type Hero struct {
	Headline      string `json:"headline"`
	Highlight     string `json:"highlight"`
	Subheadline   string `json:"subheadline"`
	BackgroundURL string `json:"background_url"`
	CallToAction  string `json:"call_to_action"`
}

type OfficeHours struct {
	Kind  string `json:"kind"`
	Days  string `json:"days"`
	Hours string `json:"hours"`
}

type Service struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
	Icon        string `json:"icon"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Validate reports content problems that would break the page.
func (c *SiteContent) Validate() map[string]string {
	errors := make(map[string]string)

	if c.Practice.Name == "" {
		errors["practice.name"] = "Practice name is required"
	}
	if c.Metadata.Title == "" {
		errors["metadata.title"] = "Page title is required"
	}
	for _, s := range c.Services {
		if s.Title == "" {
			errors["services"] = "Every service needs a title"
			break
		}
	}
	for _, f := range c.FAQs {
		if f.Question == "" || f.Answer == "" {
			errors["faqs"] = "Every FAQ needs a question and an answer"
			break
		}
	}

	return errors
}
