package dto

// RegisterBusinessRequest bootstraps a tenant: the business, its first
// location, and the admin account, in one transaction.
type RegisterBusinessRequest struct {
	Name          string  `json:"name" validate:"required"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email" validate:"omitempty,email"`
	LocationName  string  `json:"location_name" validate:"required"`
	AdminUsername string  `json:"admin_username" validate:"required,min=3"`
	AdminName     string  `json:"admin_name" validate:"required"`
	AdminPassword string  `json:"admin_password" validate:"required,min=8"`
}

type BusinessResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Phone     *string            `json:"phone,omitempty"`
	Email     *string            `json:"email,omitempty"`
	Active    bool               `json:"active"`
	Locations []LocationResponse `json:"locations,omitempty"`
}

type CreateLocationRequest struct {
	Name    string  `json:"name" validate:"required"`
	Address *string `json:"address"`
}

type UpdateLocationRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

type LocationResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	Active  bool    `json:"active"`
}
