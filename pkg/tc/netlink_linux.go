package tc

import (
	"fmt"
	ns "github.com/containernetworking/plugins/pkg/ns"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
	"net"
	"strings"
)

// netem queue length, large enough for high-delay links
const netemLimit = 300000

// Apply enters the network namespace at nsPath (/proc/<pid>/ns/net) and
// applies plan through netlink, in order.
func Apply(nsPath string, plan Plan) error {
	containerNs, err := ns.GetNS(nsPath)
	if err != nil {
		return fmt.Errorf("failed to get namespace %s: %v", nsPath, err)
	}
	defer containerNs.Close()

	return containerNs.Do(func(_ ns.NetNS) error {
		for i, in := range plan {
			if err := applyInstruction(in); err != nil {
				return fmt.Errorf("instruction %d (%s): %v", i+1, in, err)
			}
		}
		return nil
	})
}

func applyInstruction(in Instruction) error {
	link, err := netlink.LinkByName(in.Device)
	if err != nil {
		return fmt.Errorf("failed to get link by name: %v", err)
	}
	index := link.Attrs().Index

	if in.Kind == KindFilter {
		filter, err := buildFilter(in, index)
		if err != nil {
			return err
		}
		return netlink.FilterAdd(filter)
	}

	if in.Op == OpDel {
		qdiscs, err := netlink.QdiscList(link)
		if err != nil {
			return fmt.Errorf("failed to list qdiscs: %v", err)
		}
		for _, q := range qdiscs {
			if q.Attrs().Parent == in.Parent {
				return netlink.QdiscDel(q)
			}
		}
		return nil
	}

	qdisc, err := buildQdisc(in, index)
	if err != nil {
		return err
	}
	if in.Op == OpReplace {
		return netlink.QdiscReplace(qdisc)
	}
	return netlink.QdiscAdd(qdisc)
}

func buildQdisc(in Instruction, linkIndex int) (netlink.Qdisc, error) {
	attrs := netlink.QdiscAttrs{
		LinkIndex: linkIndex,
		Handle:    in.Handle,
		Parent:    in.Parent,
	}
	switch in.Qdisc {
	case QdiscPrio:
		return netlink.NewPrio(attrs), nil
	case QdiscNetem:
		return netlink.NewNetem(attrs, netlink.NetemQdiscAttrs{
			Latency: in.DelayMs * 1000, // in us
			Limit:   netemLimit,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported qdisc %q", in.Qdisc)
	}
}

func buildFilter(in Instruction, linkIndex int) (*netlink.U32, error) {
	val, mask, err := ipMatch(in.Match)
	if err != nil {
		return nil, err
	}
	return &netlink.U32{
		FilterAttrs: netlink.FilterAttrs{
			LinkIndex: linkIndex,
			Parent:    in.Parent,
			Priority:  in.Prio,
			Protocol:  unix.ETH_P_IP,
		},
		Sel: &netlink.TcU32Sel{
			Keys: []netlink.TcU32Key{
				{
					Mask: mask,
					Val:  val,
					Off:  16, // dst address in the IPv4 header
				},
			},
			Flags: netlink.TC_U32_TERMINAL,
		},
		ClassId: in.FlowID,
	}, nil
}

// ipMatch converts 10.0.0.4 or 10.0.0.0/24 into a u32 value and mask.
func ipMatch(match string) (uint32, uint32, error) {
	prefix := 32
	addr := match
	if strings.Contains(match, "/") {
		_, ipNet, err := net.ParseCIDR(match)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid match %q: %v", match, err)
		}
		prefix, _ = ipNet.Mask.Size()
		addr = ipNet.IP.String()
	}
	val, err := IpToInt(addr)
	if err != nil {
		return 0, 0, err
	}
	mask := uint32(0)
	if prefix > 0 {
		mask = ^uint32(0) << (32 - prefix)
	}
	return val & mask, mask, nil
}
