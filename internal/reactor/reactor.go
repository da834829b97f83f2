// Package reactor implements the I/O loop (C5): a non-blocking listener
// multiplexed with its clients on a single thread, scheduling the
// periodic active-expiry cron at the top of each loop iteration.
//
// The multiplexer itself (internal/reactor/epoll_linux.go) is Linux-only,
// built on golang.org/x/sys/unix's epoll bindings — the platform's
// level-triggered readiness primitive the spec calls for. A production
// cross-platform build would add a kqueue/IOCP sibling; out of scope here.
package reactor

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/armandparra/redrust-go/internal/config"
	"github.com/armandparra/redrust-go/internal/eval"
	"github.com/armandparra/redrust-go/internal/metrics"
	"github.com/armandparra/redrust-go/internal/resp"
	"github.com/armandparra/redrust-go/internal/store"
)

// readBufferSize is the fixed per-event read size. A command frame larger
// than this is malformed from the decoder's perspective and closes the
// connection — no per-fd continuation buffer is kept across wait
// iterations. A production design would buffer per-fd and re-enter the
// decoder on more data; documented limitation, not implemented here.
const readBufferSize = 512

// maxClients bounds both the listen backlog and the epoll event batch
// size.
const maxClients = 20000

// cronIntervalSeconds is the fixed cadence of the active-expiry sweep.
const cronIntervalSeconds = 1

// Reactor owns the keyspace, the listening socket, and every client
// connection. All of its state is touched only from the loop goroutine;
// no mutex guards the store.
type Reactor struct {
	cfg       *config.Config
	log       *logrus.Logger
	metrics   *metrics.Metrics
	store     *store.Store
	evaluator *eval.Evaluator
	bufs      *bufPool

	connections int
}

// New builds a Reactor bound to cfg. m may be nil when metrics are
// disabled.
func New(cfg *config.Config, log *logrus.Logger, m *metrics.Metrics) *Reactor {
	st := store.New(cfg)
	ev := eval.New(st, cfg.AOFFile, log)
	if m != nil {
		ev.Metrics = m
	}
	return &Reactor{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		store:     st,
		evaluator: ev,
		bufs:      newBufPool(),
	}
}

// commandsFromFrame decodes a raw read buffer into zero or more Commands,
// one per top-level array the wire codec produces (pipelining).
func commandsFromFrame(buf []byte) ([]eval.Command, error) {
	values, err := resp.Decode(buf)
	if err != nil {
		return nil, err
	}

	cmds := make([]eval.Command, 0, len(values))
	for _, v := range values {
		if v.Kind != resp.KindArray || len(v.Array) == 0 {
			return nil, fmt.Errorf("expected a non-empty array command")
		}

		name := strings.ToUpper(tokenText(v.Array[0]))
		args := make([]string, 0, len(v.Array)-1)
		for _, a := range v.Array[1:] {
			args = append(args, tokenText(a))
		}
		cmds = append(cmds, eval.Command{Name: name, Args: args})
	}
	return cmds, nil
}

func tokenText(v resp.Value) string {
	switch v.Kind {
	case resp.KindString:
		return v.Str
	default:
		return ""
	}
}

func logFields(host string, port int) logrus.Fields {
	return logrus.Fields{"host": host, "port": port}
}

// evalToBuffer runs cmds through the evaluator and returns the
// concatenated reply bytes ready to write back to the client.
func evalToBuffer(ev *eval.Evaluator, cmds []eval.Command) ([]byte, error) {
	var out strings.Builder
	w := bufio.NewWriter(&out)
	if err := ev.EvalAll(cmds, w); err != nil {
		return nil, err
	}
	return []byte(out.String()), nil
}
