// Package main starts a NanoInv server.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	httpinv "github.com/micromdm/nanoinv/http"
	invhttp "github.com/micromdm/nanoinv/inventory/http"
	"github.com/micromdm/nanoinv/log/logkeys"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/envflag"
	nanohttp "github.com/micromdm/nanolib/http"
	"github.com/micromdm/nanolib/http/trace"
	"github.com/micromdm/nanolib/log/stdlogfmt"
)

// overridden by -ldflags -X
var version = "unknown"

func main() {
	var (
		flDebug   = flag.Bool("debug", false, "log debug messages")
		flListen  = flag.String("listen", ":5000", "HTTP listen address")
		flVersion = flag.Bool("version", false, "print version and exit")
		flDump    = flag.Bool("dump", false, "dump requests to stdout")
		flStorage = flag.String("storage", "inmem", "name of storage backend (inmem or kvmap)")
	)
	envflag.Parse("NANOINV_", []string{"version"})

	if *flVersion {
		fmt.Println(version)
		return
	}

	logger := stdlogfmt.New(stdlogfmt.WithDebugFlag(*flDebug))

	store, err := parseStorage(*flStorage)
	if err != nil {
		logger.Info(logkeys.Message, "parse storage", logkeys.Error, err)
		os.Exit(1)
	}

	mux := flow.New()

	mux.Handle("/version", nanohttp.NewJSONVersionHandler(version))

	invhttp.HandleAPIv1("", mux, logger, store)

	var h http.Handler = mux
	if *flDump {
		h = httpinv.DumpHandler(h, os.Stdout)
	}
	h = trace.NewTraceLoggingHandler(h, logger.With("handler", "log"), newTraceID)
	h = httpinv.NewCORSHandler(h)

	// seed for newTraceID
	rand.Seed(time.Now().UnixNano())

	logger.Info(logkeys.Message, "starting server", "listen", *flListen, "storage", *flStorage)
	err = http.ListenAndServe(*flListen, h)
	logs := []interface{}{logkeys.Message, "server shutdown"}
	if err != nil {
		logs = append(logs, logkeys.Error, err)
	}
	logger.Info(logs...)
}

// newTraceID generates a new HTTP trace ID for context logging.
// Currently this just makes a random string.
func newTraceID(_ *http.Request) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
