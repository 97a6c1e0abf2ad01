package models

// Review is participant feedback for an event.
type Review struct {
	Username   string `json:"username"`
	EventID    ID     `json:"eventId"`
	EventTitle string `json:"eventTitle,omitempty"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}
