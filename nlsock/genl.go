package nlsock

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m-lab/ofcore/metrics"
	"github.com/m-lab/ofcore/nlmsg"
)

// Generic-netlink controller constants (uapi/linux/genetlink.h).
const (
	genlIDCtrl    = 0x10
	genlCtrlVer   = 1
	ctrlCmdGetfam = 3

	ctrlAttrFamilyID   uint16 = 1
	ctrlAttrFamilyName uint16 = 2
)

// FamilyCache resolves generic-netlink family names (e.g. "ovs_datapath")
// to their numeric family ids, caching results: CTRL_CMD_GETFAMILY is
// itself a netlink round trip, and family ids are stable for a kernel's
// uptime.
type FamilyCache struct {
	mu    sync.Mutex
	byName map[string]uint16
}

// NewFamilyCache returns an empty cache.
func NewFamilyCache() *FamilyCache {
	return &FamilyCache{byName: make(map[string]uint16)}
}

// Lookup resolves name, consulting the cache first and falling back to a
// CTRL_CMD_GETFAMILY transaction over sock on a miss.
func (c *FamilyCache) Lookup(sock *Socket, name string) (uint16, error) {
	c.mu.Lock()
	if id, ok := c.byName[name]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	id, err := resolveFamily(sock, name)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.byName[name] = id
	c.mu.Unlock()
	return id, nil
}

func resolveFamily(sock *Socket, name string) (uint16, error) {
	start := time.Now()
	defer func() {
		metrics.SyscallTimeHistogram.With(prometheus.Labels{"op": "genl-lookup"}).Observe(time.Since(start).Seconds())
	}()

	b := nlmsg.NewBuilder(64)
	b.PutNlMsgHdr(sock.Pid(), sock.NextSeq(), genlIDCtrl, nlmsg.FRequest, 0)
	b.PutGenlMsgHdr(ctrlCmdGetfam, genlCtrlVer)
	b.PutString(ctrlAttrFamilyName, name)
	b.Finalize()

	msgs, err := sock.Transact(b)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, ErrSeqMismatch
	}
	payload := msgs[0].Payload()
	if len(payload) < nlmsg.GenlHdrLen {
		return 0, nlmsg.ErrTruncated
	}
	policy := nlmsg.Policy{
		ctrlAttrFamilyID:   nlmsg.U16(),
		ctrlAttrFamilyName: nlmsg.String().AsOptional(),
	}
	result, err := nlmsg.Parse(payload[nlmsg.GenlHdrLen:], policy)
	if err != nil {
		return 0, err
	}
	id, ok := result.Attrs.U16(ctrlAttrFamilyID)
	if !ok {
		return 0, nlmsg.ErrMissingRequired
	}
	return id, nil
}
