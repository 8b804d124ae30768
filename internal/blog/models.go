package blog

import (
	"time"

	"backend-mongoliatrails/internal/i18n"
)

type Post struct {
	ID          string    `json:"id"`
	Title       i18n.Text `json:"title"`
	Excerpt     i18n.Text `json:"excerpt"`
	Content     i18n.Text `json:"content"`
	Category    string    `json:"category"`
	Author      string    `json:"author"`
	AuthorImg   string    `json:"authorImg"`
	Image       string    `json:"image"`
	ReadTime    string    `json:"readTime"`
	Featured    bool      `json:"featured"`
	PublishedAt time.Time `json:"publishedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Patch replaces the fields that are set.
type Patch struct {
	Title       i18n.Text  `json:"title"`
	Excerpt     i18n.Text  `json:"excerpt"`
	Content     i18n.Text  `json:"content"`
	Category    *string    `json:"category"`
	Author      *string    `json:"author"`
	AuthorImg   *string    `json:"authorImg"`
	Image       *string    `json:"image"`
	ReadTime    *string    `json:"readTime"`
	Featured    *bool      `json:"featured"`
	PublishedAt *time.Time `json:"publishedAt"`
}

type View struct {
	ID          string    `json:"id"`
	Lang        i18n.Lang `json:"lang"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	Author      string    `json:"author"`
	AuthorImg   string    `json:"authorImg"`
	Image       string    `json:"image"`
	ReadTime    string    `json:"readTime"`
	Featured    bool      `json:"featured"`
	PublishedAt time.Time `json:"publishedAt"`
}

func (p Post) View(lang i18n.Lang) View {
	return View{
		ID:          p.ID,
		Lang:        lang,
		Title:       p.Title.Resolve(lang),
		Excerpt:     p.Excerpt.Resolve(lang),
		Content:     p.Content.Resolve(lang),
		Category:    p.Category,
		Author:      p.Author,
		AuthorImg:   p.AuthorImg,
		Image:       p.Image,
		ReadTime:    p.ReadTime,
		Featured:    p.Featured,
		PublishedAt: p.PublishedAt,
	}
}
