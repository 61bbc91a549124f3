// Package datapath enumerates Open vSwitch kernel datapaths over the
// ovs_datapath generic-netlink family: build a dump request, send it, and
// collect replies until NLMSG_DONE or a non-multipart reply.
package datapath

import (
	"github.com/m-lab/ofcore/genlfamily"
	"github.com/m-lab/ofcore/metrics"
	"github.com/m-lab/ofcore/nlmsg"
	"github.com/m-lab/ofcore/nlsock"
)

// Generic OVS header fields follow genlmsghdr in every ovs_datapath
// message: a 4-byte dp_ifindex, the datapath's ifindex.
const genlOvsHdrLen = 4

// Attribute type ids for OVS_DP_CMD_GET replies (uapi/linux/openvswitch.h).
const (
	attrName  uint16 = 1
	attrStats uint16 = 3
)

// Summary is one decoded ovs_datapath reply.
type Summary struct {
	Ifindex uint32
	Name    string
}

var policy = nlmsg.Policy{
	attrName:  nlmsg.String(),
	attrStats: nlmsg.Unspec().AsOptional(),
}

// List issues an NLM_F_DUMP request against the ovs_datapath family
// resolved via resolver, and decodes every reply into a Summary, stopping
// at NLMSG_DONE.
func List(sock *nlsock.Socket, resolver *genlfamily.Resolver) ([]Summary, error) {
	familyID, err := resolver.Resolve(sock, genlfamily.Datapath)
	if err != nil {
		return nil, err
	}

	b := nlmsg.NewBuilder(64)
	b.PutNlMsgHdr(sock.Pid(), sock.NextSeq(), familyID, nlmsg.FRequest|nlmsg.FDump, 0)
	const cmdGet = 3 // OVS_DP_CMD_GET
	b.PutGenlMsgHdr(cmdGet, 1)
	b.Finalize()

	msgs, err := sock.Transact(b)
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, m := range msgs {
		payload := m.Payload()
		if len(payload) < nlmsg.GenlHdrLen+genlOvsHdrLen {
			return nil, nlmsg.ErrTruncated
		}
		ifindex := nlmsg.ReadU32(payload[nlmsg.GenlHdrLen : nlmsg.GenlHdrLen+4])
		result, err := nlmsg.Parse(payload[nlmsg.GenlHdrLen+genlOvsHdrLen:], policy)
		if err != nil {
			return nil, err
		}
		name, _ := result.Attrs.String(attrName)
		out = append(out, Summary{Ifindex: ifindex, Name: name})
	}
	metrics.DatapathCountHistogram.Observe(float64(len(out)))
	return out, nil
}
