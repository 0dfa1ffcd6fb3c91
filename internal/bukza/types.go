package bukza

import "encoding/json"

// catalogResponse is the body of the client catalog endpoint. Items are kept
// raw so that a malformed entry can be skipped without failing the others.
type catalogResponse struct {
	Items []json.RawMessage `json:"items"`
}

type catalogItem struct {
	Name       *string `json:"name"`
	ResourceID *int64  `json:"resourceId"`
}

// availabilityRequest is the body sent to the availability endpoint
type availabilityRequest struct {
	ReservationID        *int64  `json:"reservationId"`
	ResourceIDs          []int64 `json:"resourceIds"`
	Date                 string  `json:"date"`
	DayCount             int     `json:"dayCount"`
	IncludeHours         bool    `json:"includeHours"`
	IncludeRentalPoints  bool    `json:"includeRentalPoints"`
	IncludeWorkRuleNames bool    `json:"includeWorkRuleNames"`
}

type availabilityResponse struct {
	Resources []availabilityResource `json:"resources"`
}

type availabilityResource struct {
	Days []availabilityDay `json:"days"`
}

type availabilityDay struct {
	Levels []hourLevel `json:"levels"`
}

// hourLevel is one hourly entry. The service sends more fields (endDate,
// percentage, total, workRuleId...) which are not needed here.
type hourLevel struct {
	StartDate *string  `json:"startDate"`
	Value     *float64 `json:"value"`
}
