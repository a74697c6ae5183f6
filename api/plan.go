package api

// PlanNode is a node entry of a plan file.
type PlanNode struct {
	Node    `yaml:",inline"`
	Command string          `yaml:"command"`
	Latency *LatencyProfile `yaml:"latency,omitempty"`
}

// Plan is the list of nodes to provision, in launch order.
type Plan struct {
	Nodes []PlanNode `yaml:"nodes"`
}
