package trip

import (
	"time"

	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/civil"
)

type Trip struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Region      string         `json:"region"`
	Category    string         `json:"category"`
	Title       i18n.Text      `json:"title"`
	Location    i18n.Text      `json:"location"`
	Description i18n.Text      `json:"description"`
	Duration    i18n.Text      `json:"duration"`
	Price       i18n.Price     `json:"price"`
	OldPrice    float64        `json:"oldPrice"`
	Image       string         `json:"image"`
	Rating      float64        `json:"rating"`
	Tags        []string       `json:"tags"`
	Perks       []i18n.Text    `json:"perks"`
	Itinerary   []ItineraryDay `json:"itinerary"`
	Featured    bool           `json:"featured"`
	Dates       []Departure    `json:"dates"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type ItineraryDay struct {
	Day   int       `json:"day"`
	Title i18n.Text `json:"title"`
	Desc  i18n.Text `json:"desc"`
}

// Departure is one scheduled group of a trip with its own seat counter.
type Departure struct {
	ID          string     `json:"id"`
	StartDate   civil.Date `json:"startDate"`
	EndDate     civil.Date `json:"endDate"`
	MaxSeats    int        `json:"maxSeats"`
	BookedSeats int        `json:"bookedSeats"`
}

func (d Departure) SeatsLeft() int {
	if left := d.MaxSeats - d.BookedSeats; left > 0 {
		return left
	}
	return 0
}

// Departure looks up a departure by id.
func (t Trip) Departure(id string) (Departure, bool) {
	for _, d := range t.Dates {
		if d.ID == id {
			return d, true
		}
	}
	return Departure{}, false
}

type Filter struct {
	Type     string
	Region   string
	Category string
	IDs      []string
	Featured *bool
	Limit    int
}

// Patch replaces the fields that are set. Departures are managed separately.
type Patch struct {
	Type        *string        `json:"type"`
	Region      *string        `json:"region"`
	Category    *string        `json:"category"`
	Title       i18n.Text      `json:"title"`
	Location    i18n.Text      `json:"location"`
	Description i18n.Text      `json:"description"`
	Duration    i18n.Text      `json:"duration"`
	Price       i18n.Price     `json:"price"`
	OldPrice    *float64       `json:"oldPrice"`
	Image       *string        `json:"image"`
	Rating      *float64       `json:"rating"`
	Tags        []string       `json:"tags"`
	Perks       []i18n.Text    `json:"perks"`
	Itinerary   []ItineraryDay `json:"itinerary"`
	Featured    *bool          `json:"featured"`
}

type DeparturePatch struct {
	StartDate *civil.Date `json:"startDate"`
	EndDate   *civil.Date `json:"endDate"`
	MaxSeats  *int        `json:"maxSeats"`
}

// View is a trip projected into one language, as public pages render it.
type View struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Region      string          `json:"region"`
	Category    string          `json:"category"`
	Lang        i18n.Lang       `json:"lang"`
	Title       string          `json:"title"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Duration    string          `json:"duration"`
	Price       float64         `json:"price"`
	Currency    string          `json:"currency"`
	OldPrice    float64         `json:"oldPrice,omitempty"`
	Image       string          `json:"image"`
	Rating      float64         `json:"rating"`
	Tags        []string        `json:"tags"`
	Perks       []string        `json:"perks"`
	Itinerary   []ItineraryView `json:"itinerary"`
	Featured    bool            `json:"featured"`
	Dates       []DepartureView `json:"dates"`
}

type ItineraryView struct {
	Day   int    `json:"day"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

type DepartureView struct {
	Departure
	SeatsLeft int `json:"seatsLeft"`
}

func (t Trip) View(lang i18n.Lang) View {
	price, currency := t.Price.Resolve(lang)
	v := View{
		ID:          t.ID,
		Type:        t.Type,
		Region:      t.Region,
		Category:    t.Category,
		Lang:        lang,
		Title:       t.Title.Resolve(lang),
		Location:    t.Location.Resolve(lang),
		Description: t.Description.Resolve(lang),
		Duration:    t.Duration.Resolve(lang),
		Price:       price,
		Currency:    currency,
		Image:       t.Image,
		Rating:      t.Rating,
		Tags:        t.Tags,
		Featured:    t.Featured,
		Perks:       make([]string, 0, len(t.Perks)),
		Itinerary:   make([]ItineraryView, 0, len(t.Itinerary)),
		Dates:       make([]DepartureView, 0, len(t.Dates)),
	}
	if currency == i18n.Currency(i18n.Base) {
		v.OldPrice = t.OldPrice
	}
	for _, p := range t.Perks {
		v.Perks = append(v.Perks, p.Resolve(lang))
	}
	for _, day := range t.Itinerary {
		v.Itinerary = append(v.Itinerary, ItineraryView{Day: day.Day, Title: day.Title.Resolve(lang), Desc: day.Desc.Resolve(lang)})
	}
	for _, d := range t.Dates {
		v.Dates = append(v.Dates, DepartureView{Departure: d, SeatsLeft: d.SeatsLeft()})
	}
	return v
}
