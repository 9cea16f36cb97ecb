package entity

// User is a directory entry as seen by the approval engine
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
}
