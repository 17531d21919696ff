package entity

import "time"

// Vendor represents a contractor whose attendance is reconciled
type Vendor struct {
	VendorID   string    `json:"vendor_id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Company    string    `json:"company"`
	ManagerID  *string   `json:"manager_id,omitempty"`
	Location   string    `json:"location"`
	Band       string    `json:"band"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReportsTo returns true if the vendor is on the given manager's team
func (v *Vendor) ReportsTo(managerID string) bool {
	return v != nil && v.ManagerID != nil && managerID != "" && *v.ManagerID == managerID
}

// Manager approves statuses and mismatches for the vendors on their team
type Manager struct {
	ManagerID  string    `json:"manager_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Holiday is a non-working calendar date
type Holiday struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
