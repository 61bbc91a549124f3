// Main package in ofdaemon implements the control-plane transport daemon:
// it accepts controller connections on a passive ptcp vconn, optionally
// dials out to a configured controller over an active tcp vconn, and
// periodically enumerates OVS datapaths over a generic-netlink socket.
package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/m-lab/ofcore/datapath"
	"github.com/m-lab/ofcore/genlfamily"
	"github.com/m-lab/ofcore/metrics"
	"github.com/m-lab/ofcore/nlsock"
	"github.com/m-lab/ofcore/ofp"
	"github.com/m-lab/ofcore/vconn"

	_ "github.com/m-lab/ofcore/ofconn" // registers the tcp/ptcp vconn classes
)

func init() {
	// Always prepend the filename and line number.
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	listenPort   = flag.Int("listen", ofp.TCPPort, "Port to accept controller connections on.")
	controller   = flag.String("controller", "", "Optional controller address to dial, e.g. host::port. Empty disables active dial.")
	promPort     = flag.String("prom", ":9090", "Prometheus metrics export address and port.")
	dumpInterval = flag.Duration("dump-interval", 30*time.Second, "How often to enumerate OVS datapaths.")
	reps         = flag.Int("reps", 0, "How many poll-loop iterations to run. 0 means run forever.")

	ctx, cancel = context.WithCancel(context.Background())
)

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not get args from env")

	promSrv := prometheusx.MustStartPrometheus(*promPort)
	defer promSrv.Shutdown(ctx)
	defer cancel()

	passive, err := vconn.Open("ptcp::" + strconv.Itoa(*listenPort))
	rtx.Must(err, "Could not open passive vconn on port %d", *listenPort)
	defer passive.Close()

	var active vconn.Vconn
	if *controller != "" {
		active, err = vconn.Open("tcp::" + *controller)
		rtx.Must(err, "Could not dial controller at %q", *controller)
		defer active.Close()
	}

	sock, err := nlsock.Create(unix.NETLINK_GENERIC, nlsock.Config{})
	rtx.Must(err, "Could not open generic-netlink socket")
	defer sock.Close()
	resolver := genlfamily.NewResolver()

	ticker := time.NewTicker(*dumpInterval)
	defer ticker.Stop()

	log.Println("ofdaemon running, accepting controllers on port", *listenPort)
	runLoop(passive, active, sock, resolver, ticker.C, *reps)
}

// runLoop drives the single poll()-based event loop: one pollfd array
// built fresh each iteration via Prepoll, one
// poll() syscall, then Postpoll/Recv/Accept dispatch. It also fires
// datapath.List on every tick of dumps. A positive reps bounds the number
// of iterations, so tests can run the loop once and return.
func runLoop(passive, active vconn.Vconn, sock *nlsock.Socket, resolver *genlfamily.Resolver, dumps <-chan time.Time, reps int) {
	conns := []vconn.Vconn{}
	for count := 0; reps == 0 || count < reps; count++ {
		pfds := make([]unix.PollFd, 0, 2+len(conns))

		var pfd unix.PollFd
		passive.Prepoll(vconn.WantAccept, &pfd)
		pfds = append(pfds, pfd)

		if active != nil {
			var apfd unix.PollFd
			active.Prepoll(vconn.WantRecv|vconn.WantSend, &apfd)
			pfds = append(pfds, apfd)
		}
		for i := range conns {
			var cpfd unix.PollFd
			conns[i].Prepoll(vconn.WantRecv|vconn.WantSend, &cpfd)
			pfds = append(pfds, cpfd)
		}

		start := time.Now()
		n, err := unix.Poll(pfds, 1000)
		metrics.PollingHistogram.Observe(time.Since(start).Seconds())
		if err != nil && err != unix.EINTR {
			log.Printf("poll: %v", err)
			return
		}

		select {
		case <-dumps:
			list, err := datapath.List(sock, resolver)
			if err != nil {
				log.Printf("datapath.List: %v", err)
			} else {
				log.Printf("datapaths: %d", len(list))
			}
		default:
		}

		if n <= 0 {
			continue
		}

		idx := 0
		if err := passive.Postpoll(pfds[idx].Revents); err != nil {
			log.Printf("passive Postpoll: %v", err)
		}
		if pfds[idx].Revents&unix.POLLIN != 0 {
			if newConn, err := passive.Accept(); err == nil {
				conns = append(conns, newConn)
			}
		}
		idx++

		if active != nil {
			if err := active.Postpoll(pfds[idx].Revents); err != nil {
				log.Printf("active Postpoll: %v", err)
			}
			if pfds[idx].Revents&unix.POLLIN != 0 {
				if _, err := active.Recv(); err != nil && err != unix.EAGAIN {
					log.Printf("active Recv: %v", err)
				}
			}
			idx++
		}

		live := conns[:0]
		for i, c := range conns {
			pr := pfds[idx+i].Revents
			if err := c.Postpoll(pr); err != nil {
				c.Close()
				continue
			}
			if pr&unix.POLLIN != 0 {
				if _, err := c.Recv(); err != nil && err != unix.EAGAIN {
					c.Close()
					continue
				}
			}
			live = append(live, c)
		}
		conns = live
	}
}

