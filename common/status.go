package common

//go:generate enumer -json -transform lower -type Status -trimprefix Status

// Status is the state of an order as reported by the provider.
type Status int

const (
	StatusQueued Status = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusCancelled
)

// Terminal returns true when the provider will no longer update the order.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
