package dto

type ChangePlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=free standard premium"`
}

type SubscriptionResponse struct {
	Plan         string  `json:"plan"`
	Status       string  `json:"status"`
	MaxProducts  int     `json:"max_products"`
	MaxLocations int     `json:"max_locations"`
	MaxStaff     int     `json:"max_staff"`
	PeriodEnd    *string `json:"period_end,omitempty"`
}

// UsageResponse reports current resource consumption against plan limits.
type UsageResponse struct {
	Plan          string `json:"plan"`
	Products      int64  `json:"products"`
	MaxProducts   int    `json:"max_products"`
	Locations     int64  `json:"locations"`
	MaxLocations  int    `json:"max_locations"`
	Staff         int64  `json:"staff"`
	MaxStaff      int    `json:"max_staff"`
}
