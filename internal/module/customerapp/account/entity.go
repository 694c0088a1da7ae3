package account

import "time"

const (
	StatusActive      = "ACTIVE"
	StatusDeactivated = "DEACTIVATED"

	RoleCustomer  = "CUSTOMER"
	RoleOrganizer = "ORGANIZER"
)

type Account struct {
	ID        int64
	Name      string
	Email     string
	Password  string
	Role      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
