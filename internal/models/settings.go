package models

// SystemSettings are portal-wide switches kept in the client cache.
type SystemSettings struct {
	SiteName              string `json:"siteName" validate:"required"`
	MaxEventsPerOrganizer int    `json:"maxEventsPerOrganizer" validate:"min=1,max=100"`
	AutoApproveEvents     bool   `json:"autoApproveEvents"`
	AllowRegistrations    bool   `json:"allowRegistrations"`
	MaintenanceMode       bool   `json:"maintenanceMode"`
	EmailNotifications    bool   `json:"emailNotifications"`
	MaxFileSizeMB         int    `json:"maxFileSize" validate:"min=1,max=50"`
}

// DefaultSystemSettings returns the settings used before an admin saves any.
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		SiteName:              "Neighbourhood Event Management System",
		MaxEventsPerOrganizer: 10,
		AllowRegistrations:    true,
		EmailNotifications:    true,
		MaxFileSizeMB:         5,
	}
}
