package merch

import "strings"

// Order statuses reported by the backend.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusClaimed   = "CLAIMED"
	StatusCancelled = "CANCELLED"
)

// Customer is one purchase of a merch item as listed for a merch's customers.
type Customer struct {
	OrderID     int64
	StudentID   string
	StudentName string
	YearLevel   string
	Design      string
	Color       string
	Size        string
	Quantity    int
	TotalPrice  float64
	OrderStatus string
	OrderDate   string
}

// Variant joins the non-empty design, color and size with " / ", or returns "-".
func (c Customer) Variant() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Design, c.Color, c.Size} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " / ")
}

// MatchesSearch reports whether q is a case-insensitive substring of the student's name or ID.
func (c Customer) MatchesSearch(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.StudentID), q) ||
		strings.Contains(strings.ToLower(c.StudentName), q)
}

// Order is a merch order created by a bulk payment.
type Order struct {
	OrderID            int64
	StudentID          string
	MerchVariantItemID int64
	Quantity           int
	TotalPrice         float64
	Status             string
}

// StudentIDs returns the student ID of each order in order.
func StudentIDs(orders []Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.StudentID
	}
	return out
}
