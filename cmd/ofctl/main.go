// Main package in ofctl implements a one-shot command-line tool for
// resolving generic-netlink family names and listing OVS datapaths as CSV.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/m-lab/go/rtx"
	mlabuuid "github.com/m-lab/uuid"
	"golang.org/x/sys/unix"

	"github.com/m-lab/ofcore/datapath"
	"github.com/m-lab/ofcore/genlfamily"
	"github.com/m-lab/ofcore/nlsock"
)

func init() {
	// Always prepend the filename and line number.
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	family = flag.String("family", "", "Resolve this generic-netlink family name and print its id, then exit.")

	logFatal = log.Fatal
)

func main() {
	flag.Parse()

	sock, err := nlsock.Create(unix.NETLINK_GENERIC, nlsock.Config{})
	rtx.Must(err, "Could not open generic-netlink socket")
	defer sock.Close()

	runID := mlabuuid.FromCookie(uint64(sock.Pid()))
	log.SetPrefix("[" + runID + "] ")

	resolver := genlfamily.NewResolver()

	if *family != "" {
		id, err := resolver.Resolve(sock, *family)
		if err != nil {
			logFatal("Could not resolve family ", *family, ": ", err)
		}
		log.Printf("%s = %d", *family, id)
		return
	}

	list, err := datapath.List(sock, resolver)
	if err != nil {
		logFatal("Could not list datapaths: ", err)
	}
	rtx.Must(toCSV(list, os.Stdout), "Could not write CSV")
}

// toCSV writes the datapath summaries as CSV.
func toCSV(list []datapath.Summary, w io.Writer) error {
	return gocsv.Marshal(list, w)
}
