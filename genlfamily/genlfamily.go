// Package genlfamily names the generic-netlink families the datapath
// package enumerates, and caches their resolved numeric ids behind
// nlsock.FamilyCache. Unlike fixed-number netlink families, the Open
// vSwitch control families are numbered dynamically by the kernel and
// must be resolved by name at runtime.
package genlfamily

import "github.com/m-lab/ofcore/nlsock"

// Names of the Open vSwitch generic-netlink families, as registered by the
// openvswitch kernel module.
const (
	Datapath = "ovs_datapath"
	Vport    = "ovs_vport"
	Flow     = "ovs_flow"
	Packet   = "ovs_packet"
)

// Resolver resolves and caches the numeric family id for each OVS family
// name, sharing one nlsock.FamilyCache across all of them.
type Resolver struct {
	cache *nlsock.FamilyCache
}

// NewResolver returns a Resolver with an empty cache.
func NewResolver() *Resolver {
	return &Resolver{cache: nlsock.NewFamilyCache()}
}

// Resolve looks up name's numeric family id over sock, consulting (and
// populating) the shared cache.
func (r *Resolver) Resolve(sock *nlsock.Socket, name string) (uint16, error) {
	return r.cache.Lookup(sock, name)
}
