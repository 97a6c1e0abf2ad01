package models

// Stats is the admin analytics summary.
type Stats struct {
	TotalEvents        int64          `json:"totalEvents"`
	TotalUsers         int64          `json:"totalUsers"`
	TotalRegistrations int64          `json:"totalRegistrations"`
	ApprovedEvents     int64          `json:"approvedEvents"`
	PendingEvents      int64          `json:"pendingEvents"`
	RejectedEvents     int64          `json:"rejectedEvents"`
	UsersByRole        map[Role]int64 `json:"usersByRole"`
}

// OrganizerCount is one row of the top-organizers ranking.
type OrganizerCount struct {
	Organizer  string `json:"organizer"`
	EventCount int64  `json:"eventCount"`
}
