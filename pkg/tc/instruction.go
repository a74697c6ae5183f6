package tc

import (
	"fmt"
	"github.com/vishvananda/netlink"
	"strings"
)

// Op is the tc verb of an instruction.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpDel     Op = "del"
)

// Kind tells qdisc instructions from filter instructions.
type Kind int

const (
	KindQdisc Kind = iota
	KindFilter
)

const (
	QdiscNetem = "netem"
	QdiscPrio  = "prio"
)

// Instruction is one traffic-control command applied inside a node's
// network namespace. Handles use the netlink encoding (major<<16 | minor).
type Instruction struct {
	Op     Op
	Kind   Kind
	Device string
	Parent uint32 // netlink.HANDLE_ROOT for the root qdisc
	Handle uint32 // 0 lets the kernel pick

	// qdisc only
	Qdisc   string
	DelayMs uint32

	// filter only
	Prio   uint16
	Match  string // destination address or CIDR
	FlowID uint32
}

// String renders the instruction in tc(8) syntax.
func (in Instruction) String() string {
	var b strings.Builder
	switch in.Kind {
	case KindFilter:
		// tc filter add dev eth0 parent 1:0 protocol ip prio 1 u32 match ip dst 10.0.0.4 flowid 1:1
		fmt.Fprintf(&b, "tc filter %s dev %s parent %s protocol ip prio %d u32 match ip dst %s flowid %s",
			in.Op, in.Device, classStr(in.Parent), in.Prio, in.Match, classStr(in.FlowID))
	default:
		// tc qdisc add dev eth0 parent 1:2 handle 20: netem delay 50ms
		fmt.Fprintf(&b, "tc qdisc %s dev %s %s", in.Op, in.Device, parentStr(in.Parent))
		if in.Op == OpDel {
			break
		}
		if in.Handle != 0 {
			fmt.Fprintf(&b, " handle %s", qdiscHandleStr(in.Handle))
		}
		b.WriteString(" " + in.Qdisc)
		if in.Qdisc == QdiscNetem {
			fmt.Fprintf(&b, " delay %dms", in.DelayMs)
		}
	}
	return b.String()
}

func parentStr(parent uint32) string {
	if parent == netlink.HANDLE_ROOT {
		return "root"
	}
	return "parent " + classStr(parent)
}

// classStr formats a class id or filter parent, e.g. 1:2
func classStr(h uint32) string {
	major, minor := netlink.MajorMinor(h)
	return fmt.Sprintf("%x:%x", major, minor)
}

// qdiscHandleStr formats a qdisc handle, e.g. 10:
func qdiscHandleStr(h uint32) string {
	major, _ := netlink.MajorMinor(h)
	return fmt.Sprintf("%x:", major)
}

// Plan is an ordered instruction sequence. Each instruction may depend on
// the ones before it, so it must be applied front to back.
type Plan []Instruction

// Commands renders every instruction, in order.
func (p Plan) Commands() []string {
	cmds := make([]string, 0, len(p))
	for _, in := range p {
		cmds = append(cmds, in.String())
	}
	return cmds
}
