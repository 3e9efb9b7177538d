package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/TylerWon/chat-rooms/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	ChatRxMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_rx_messages_total",
		Help: "Total chat messages received from clients.",
	})
	ChatTxMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_tx_messages_total",
		Help: "Total chat message copies fanned out to room members.",
	})
	RepliesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replies_sent_total",
		Help: "Total server reply messages sent to clients.",
	})
	RoomJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "room_joins_total",
		Help: "Total successful room joins.",
	})
	RejectedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rejected_clients_total",
		Help: "Total client connection attempts rejected (e.g., max-clients).",
	})
	ActiveUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_users",
		Help: "Current number of connected users.",
	})
	BroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_fanout",
		Help: "Number of room members targeted in the most recent broadcast.",
	})
	RoomOccupancy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "room_occupancy",
		Help: "Current number of users per room.",
	}, []string{"room"})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (protocol violations, bad lengths, unknown types).",
	})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrTCPRead  = "tcp_read"
	ErrTCPWrite = "tcp_write"
	ErrDecode   = "decode"
	ErrAccept   = "accept"
)

// StartHTTP serves Prometheus metrics at /metrics plus a /ready probe.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localChatRx    uint64
	localChatTx    uint64
	localReplies   uint64
	localJoins     uint64
	localRejects   uint64
	localErrors    uint64
	localUsers     uint64
	localFanout    uint64
	localMalformed uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	ChatRx    uint64
	ChatTx    uint64
	Replies   uint64
	Joins     uint64
	Rejects   uint64
	Errors    uint64 // sum across error labels
	Users     uint64
	Fanout    uint64
	Malformed uint64
}

func Snap() Snapshot {
	return Snapshot{
		ChatRx:    atomic.LoadUint64(&localChatRx),
		ChatTx:    atomic.LoadUint64(&localChatTx),
		Replies:   atomic.LoadUint64(&localReplies),
		Joins:     atomic.LoadUint64(&localJoins),
		Rejects:   atomic.LoadUint64(&localRejects),
		Errors:    atomic.LoadUint64(&localErrors),
		Users:     atomic.LoadUint64(&localUsers),
		Fanout:    atomic.LoadUint64(&localFanout),
		Malformed: atomic.LoadUint64(&localMalformed),
	}
}

// Wrapper helpers to keep call sites simple.
func IncChatRx() {
	ChatRxMessages.Inc()
	atomic.AddUint64(&localChatRx, 1)
}

func AddChatTx(n int) {
	ChatTxMessages.Add(float64(n))
	atomic.AddUint64(&localChatTx, uint64(n))
}

func IncReply() {
	RepliesSent.Inc()
	atomic.AddUint64(&localReplies, 1)
}

func IncJoin() {
	RoomJoins.Inc()
	atomic.AddUint64(&localJoins, 1)
}

func IncReject() {
	RejectedClients.Inc()
	atomic.AddUint64(&localRejects, 1)
}

func SetActiveUsers(n int) {
	ActiveUsers.Set(float64(n))
	atomic.StoreUint64(&localUsers, uint64(n))
}

func SetBroadcastFanout(n int) {
	BroadcastFanout.Set(float64(n))
	atomic.StoreUint64(&localFanout, uint64(n))
}

// SetRoomOccupancy records the member count of one room.
func SetRoomOccupancy(room uint8, n int) {
	RoomOccupancy.WithLabelValues(strconv.Itoa(int(room))).Set(float64(n))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register common error label series so first error does not log a registration latency.
	for _, lbl := range []string{ErrTCPRead, ErrTCPWrite, ErrDecode, ErrAccept} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}
