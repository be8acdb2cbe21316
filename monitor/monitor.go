// Package monitor exposes a live HTTP introspection surface over a running
// simulation: pause/continue the tick driver, inspect bank-state and
// command-queue depth, and pull process resource usage or a CPU profile.
// It is entirely optional and separate from the core — memctrl.Controller
// never imports this package.
package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"runtime/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
)

// Driver is the subset of the trace-replay harness the monitor can control:
// pause/resume the per-cycle tick loop and report the current cycle.
type Driver interface {
	Pause()
	Continue()
	CurrentCycle() uint64
}

// Inspectable is the subset of Controller the monitor reads for snapshots,
// kept narrow and interface-shaped so monitor does not need to import
// memctrl's internal packages.
type Inspectable interface {
	RowBufferHits(rank, bank int) uint64
	RowBufferMisses(rank, bank int) uint64
	CommandQueueDepth(rank int) int
}

// Server is the monitor's HTTP surface.
type Server struct {
	driver      Driver
	controller  Inspectable
	numRanks    int
	numBanks    int
	portNumber  int

	pauseMu sync.Mutex
}

// NewServer builds a Server bound to driver and controller. numRanks/
// numBanks size the /api/bankstate route space.
func NewServer(driver Driver, controller Inspectable, numRanks, numBanks int) *Server {
	return &Server{driver: driver, controller: controller, numRanks: numRanks, numBanks: numBanks}
}

// WithPortNumber sets the TCP port the server listens on; 0 picks a random
// free port, matching the teacher's convention for ports below 1000.
func (s *Server) WithPortNumber(port int) *Server {
	if port < 1000 {
		fmt.Fprintf(os.Stderr,
			"monitor: port %d is not allowed, using a random port instead\n", port)
		port = 0
	}

	s.portNumber = port

	return s
}

// Start launches the HTTP server in the background and returns its actual
// listening address.
func (s *Server) Start() (string, error) {
	r := mux.NewRouter()
	r.HandleFunc("/api/pause", s.pause)
	r.HandleFunc("/api/continue", s.continueDriver)
	r.HandleFunc("/api/now", s.now)
	r.HandleFunc("/api/bankstate/{rank}/{bank}", s.bankStat)
	r.HandleFunc("/api/cmdqueue/{rank}", s.cmdQueueDepth)
	r.HandleFunc("/api/resource", s.resource)
	r.HandleFunc("/api/profile", s.profile)

	addr := ":0"
	if s.portNumber >= 1000 {
		addr = ":" + strconv.Itoa(s.portNumber)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("monitor: listening: %w", err)
	}

	go func() {
		if err := http.Serve(listener, r); err != nil {
			log.Printf("monitor: server stopped: %v", err)
		}
	}()

	return listener.Addr().String(), nil
}

func (s *Server) pause(w http.ResponseWriter, _ *http.Request) {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()

	s.driver.Pause()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) continueDriver(w http.ResponseWriter, _ *http.Request) {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()

	s.driver.Continue()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, `{"now":%d}`, s.driver.CurrentCycle())
}

type bankStatRsp struct {
	Rank, Bank int
	RowHits    uint64
	RowMisses  uint64
}

func (s *Server) bankStat(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(mux.Vars(r)["rank"])
	if err != nil || rank < 0 || rank >= s.numRanks {
		http.NotFound(w, r)
		return
	}

	bank, err := strconv.Atoi(mux.Vars(r)["bank"])
	if err != nil || bank < 0 || bank >= s.numBanks {
		http.NotFound(w, r)
		return
	}

	rsp := bankStatRsp{
		Rank:      rank,
		Bank:      bank,
		RowHits:   s.controller.RowBufferHits(rank, bank),
		RowMisses: s.controller.RowBufferMisses(rank, bank),
	}

	writeJSON(w, rsp)
}

type cmdQueueRsp struct {
	Rank  int
	Depth int
}

func (s *Server) cmdQueueDepth(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(mux.Vars(r)["rank"])
	if err != nil || rank < 0 || rank >= s.numRanks {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, cmdQueueRsp{Rank: rank, Depth: s.controller.CommandQueueDepth(rank)})
}

type resourceRsp struct {
	CPUPercent float64
	MemorySize uint64
}

func (s *Server) resource(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{CPUPercent: cpuPercent, MemorySize: mem.RSS})
}

func (s *Server) profile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
