package network

// IPRange is an inclusive IPv4 range marked as internal.
type IPRange struct {
	ID      int64  `json:"id" db:"id"`
	StartIP string `json:"start_ip" db:"start_ip"`
	EndIP   string `json:"end_ip" db:"end_ip"`
	Label   string `json:"label" db:"label"`
}
