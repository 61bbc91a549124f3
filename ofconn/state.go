// Package ofconn implements the TCP active (tcp) and passive (ptcp) vconn
// classes, registered with package vconn under those scheme names. It is
// built on golang.org/x/sys/unix raw sockets rather than Go's net/os.File
// non-blocking machinery because the caller drives readiness itself
// through Prepoll/Postpoll instead of going through the runtime's
// integrated poller.
package ofconn

// State names the composite state of an active TCP vconn, for
// observability. RxPartial and TxStaged aren't mutually
// exclusive with each other (RxPartialTxStaged); State() reports whichever
// combination currently applies.
type State int

const (
	Connecting State = iota
	Idle
	RxPartial
	TxStaged
	RxPartialTxStaged
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Idle:
		return "IDLE"
	case RxPartial:
		return "RX_PARTIAL"
	case TxStaged:
		return "TX_STAGED"
	case RxPartialTxStaged:
		return "RX_PARTIAL|TX_STAGED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

func composeState(connecting, closed bool, rxPartial, txStaged bool) State {
	switch {
	case closed:
		return Closed
	case connecting:
		return Connecting
	case rxPartial && txStaged:
		return RxPartialTxStaged
	case rxPartial:
		return RxPartial
	case txStaged:
		return TxStaged
	default:
		return Idle
	}
}
