//go:build linux

package main

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/m-lab/ofcore/datapath"
)

func TestToCSV(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	list := []datapath.Summary{
		{Ifindex: 3, Name: "ovs-system"},
		{Ifindex: 9, Name: "br-int"},
	}
	if err := toCSV(list, buf); err != nil {
		t.Fatalf("toCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d CSV lines, want 3:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Ifindex,Name" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "3,ovs-system" || lines[2] != "9,br-int" {
		t.Errorf("records = %q, %q", lines[1], lines[2])
	}
}

func TestMainBadFamily(t *testing.T) {
	defer func(args []string) {
		os.Args = args
		logFatal = log.Fatal
	}(os.Args)

	// A family name no kernel registers makes the resolve path fail.
	os.Args = []string{"test_ofctl", "-family", "no_such_family_for_testing"}
	logFatal = func(...interface{}) {
		panic("panic instead of log.Fatal")
	}

	defer func() {
		if recover() == nil {
			t.Error("Should have panicked")
		}
	}()

	main()
}
