package tc

import (
	"Simnet/api"
	"Simnet/pkg/util"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// The tc binary (iproute2) must exist in the container and the container
// needs NET_ADMIN for any of these plans to apply.

var (
	prioHandle    = netlink.MakeHandle(1, 0)    // 1:
	exemptClass   = netlink.MakeHandle(1, 1)    // 1:1
	delayedClass  = netlink.MakeHandle(1, 2)    // 1:2
	exemptHandle  = netlink.MakeHandle(0x10, 0) // 10:
	delayedHandle = netlink.MakeHandle(0x20, 0) // 20:
)

// Uniform delays all egress traffic of dev.
// tc qdisc replace dev eth0 root netem delay 50ms
func Uniform(dev string, delayMs uint32) Plan {
	return Plan{{
		Op:      OpReplace,
		Kind:    KindQdisc,
		Device:  dev,
		Parent:  netlink.HANDLE_ROOT,
		Qdisc:   QdiscNetem,
		DelayMs: delayMs,
	}}
}

// ExceptIP delays traffic to subnet by delayMs, except traffic to exemptIP
// which gets exemptDelayMs.
//
//	tc qdisc add dev eth0 root handle 1: prio
//	tc filter add dev eth0 parent 1:0 protocol ip prio 1 u32 match ip dst 10.0.0.13 flowid 1:1
//	tc filter add dev eth0 parent 1:0 protocol ip prio 1 u32 match ip dst 10.0.0.0/24 flowid 1:2
//	tc qdisc add dev eth0 parent 1:1 handle 10: netem delay 0ms
//	tc qdisc add dev eth0 parent 1:2 handle 20: netem delay 50ms
//
// The filters classify into the prio bands before the netem qdiscs attach
// to them, so the order is fixed.
func ExceptIP(dev string, delayMs uint32, exemptIP string, exemptDelayMs uint32, subnet string) Plan {
	filter := func(match string, flowID uint32) Instruction {
		return Instruction{
			Op:     OpAdd,
			Kind:   KindFilter,
			Device: dev,
			Parent: prioHandle,
			Prio:   1,
			Match:  match,
			FlowID: flowID,
		}
	}
	netem := func(parent, handle, delay uint32) Instruction {
		return Instruction{
			Op:      OpAdd,
			Kind:    KindQdisc,
			Device:  dev,
			Parent:  parent,
			Handle:  handle,
			Qdisc:   QdiscNetem,
			DelayMs: delay,
		}
	}

	return Plan{
		{Op: OpAdd, Kind: KindQdisc, Device: dev, Parent: netlink.HANDLE_ROOT, Handle: prioHandle, Qdisc: QdiscPrio},
		filter(exemptIP, exemptClass),
		filter(subnet, delayedClass),
		netem(exemptClass, exemptHandle, exemptDelayMs),
		netem(delayedClass, delayedHandle, delayMs),
	}
}

// Clear removes whatever root qdisc dev has.
// tc qdisc del dev eth0 root
func Clear(dev string) Plan {
	return Plan{{Op: OpDel, Kind: KindQdisc, Device: dev, Parent: netlink.HANDLE_ROOT}}
}

// ForProfile picks Uniform or ExceptIP for p.
func ForProfile(dev string, p api.LatencyProfile, subnet string) (Plan, error) {
	if !p.Selective() {
		return Uniform(dev, p.Delay), nil
	}
	if !util.CheckIpv4(p.ExemptIP) {
		return nil, errors.Wrapf(api.ErrInvalidConfig, "invalid exempt ip %q", p.ExemptIP)
	}
	if !util.CheckSubnet(subnet) {
		return nil, errors.Wrapf(api.ErrInvalidConfig, "invalid subnet %q", subnet)
	}
	return ExceptIP(dev, p.Delay, p.ExemptIP, p.ExemptDelay, subnet), nil
}
