package dto

// ProfileUpdateRequest replaces identity fields. Role is deliberately
// absent; the server never accepts role changes from clients.
type ProfileUpdateRequest struct {
	Phone    string `json:"phone"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Address  string `json:"address"`
}
