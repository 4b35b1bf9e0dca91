package common

//go:generate enumer -json -text -transform snake -type Bundle -trimprefix Bundle

// Bundle is a product configuration (band set/processing level) for an order.
type Bundle int

const (
	BundleVisual Bundle = iota
	BundleAnalytic
	BundleAnalyticSR
)
