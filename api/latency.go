package api

// LatencyProfile is the artificial delay for one node.
// With ExemptIP set, traffic to that address gets ExemptDelay and the rest
// of the subnet gets Delay.
type LatencyProfile struct {
	Delay       uint32 `yaml:"delay"` // in ms
	ExemptIP    string `yaml:"exemptIp,omitempty"`
	ExemptDelay uint32 `yaml:"exemptDelay,omitempty"` // in ms
}

// Selective reports whether one peer is exempt from Delay.
func (p LatencyProfile) Selective() bool {
	return p.ExemptIP != ""
}
