package models

// Registration links a user to an event. The event fields are a snapshot taken when the
// user joined; they are never refreshed from later edits to the event.
type Registration struct {
	ID                ID     `json:"id,omitempty"`
	Username          string `json:"username"`
	EventID           ID     `json:"eventId"`
	EventTitle        string `json:"eventTitle,omitempty"`
	EventDate         string `json:"eventDate,omitempty"`
	EventTime         string `json:"eventTime,omitempty"`
	EventLocation     string `json:"eventLocation,omitempty"`
	EventCategory     string `json:"eventCategory,omitempty"`
	EventDescription  string `json:"eventDescription,omitempty"`
	OrganizerUsername string `json:"organizerUsername,omitempty"`
	RegisteredAt      string `json:"registrationDate,omitempty"`
	Attended          bool   `json:"attended,omitempty"`
	Cancelled         bool   `json:"cancelled,omitempty"`
}

// NewRegistration snapshots e for username.
func NewRegistration(username string, e Event) Registration {
	return Registration{
		Username:          username,
		EventID:           e.ID,
		EventTitle:        e.Title,
		EventDate:         e.Date,
		EventTime:         e.Time,
		EventLocation:     e.Location,
		EventCategory:     e.Category,
		EventDescription:  e.Description,
		OrganizerUsername: e.OrganizerName,
	}
}

// CancelMarker records that username cancelled its registration for EventID.
type CancelMarker struct {
	Username string `json:"username"`
	EventID  ID     `json:"eventId"`
}
