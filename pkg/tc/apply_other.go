//go:build !linux

package tc

import "github.com/pkg/errors"

// Apply needs netlink and network namespaces, which only exist on Linux.
func Apply(nsPath string, plan Plan) error {
	return errors.Errorf("tc: cannot apply %d instructions to %s: not supported on this platform", len(plan), nsPath)
}
