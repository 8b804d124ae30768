package settings

import "backend-mongoliatrails/internal/i18n"

type Settings struct {
	SiteName          i18n.Text `json:"siteName"`
	SupportEmail      string    `json:"supportEmail" validate:"omitempty,email"`
	MaintenanceMode   bool      `json:"maintenanceMode"`
	AllowRegistration bool      `json:"allowRegistration"`
	AnnouncementBar   i18n.Text `json:"announcementBar"`
}

// Defaults is what the site shows before an admin has saved anything.
func Defaults() Settings {
	return Settings{
		SiteName: i18n.Text{
			i18n.MN: "Аялал Жуулчлал",
			i18n.EN: "Travel Co",
			i18n.KO: "여행사",
		},
		SupportEmail:      "support@travel.com",
		AllowRegistration: true,
		AnnouncementBar:   i18n.Text{},
	}
}
