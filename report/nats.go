package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
	Drain() error
}

// NewNatsReporter publishes over nc and drains it on Close.
func NewNatsReporter(nc *nats.Conn, prefix string) Reporter {
	return newNatsReporter(nc, prefix)
}

func newNatsReporter(nc publisher, prefix string) *natsReporter {
	if prefix == "" {
		prefix = "acasci"
	}

	return &natsReporter{nc: nc, prefix: prefix}
}

// natsReporter publishes step events on <prefix>.run.<run id>.<step>.
type natsReporter struct {
	nc     publisher
	prefix string
}

func (n *natsReporter) Subject(evt StepEvent) string {
	return fmt.Sprintf("%s.run.%s.%s", n.prefix, token(evt.RunId), token(evt.Step))
}

func (n *natsReporter) Report(_ context.Context, evt StepEvent) {
	b, err := json.Marshal(evt)
	if err != nil {
		log.Warn().Err(err).Msg("unable to marshal step event")
		return
	}

	if err := n.nc.Publish(n.Subject(evt), b); err != nil {
		log.Warn().Err(err).Str("step", evt.Step).Msg("unable to publish step event")
	}
}

func (n *natsReporter) Close() error {
	if err := n.nc.Flush(); err != nil {
		log.Warn().Err(err).Msg("unable to flush step events")
	}

	return n.nc.Drain()
}

// token keeps subject tokens free of the separators nats gives meaning to.
func token(s string) string {
	if s == "" {
		return "_"
	}

	out := []rune(s)
	for i, r := range out {
		switch r {
		case '.', '*', '>', ' ', '\t':
			out[i] = '_'
		}
	}
	return string(out)
}

var _ publisher = (*nats.Conn)(nil)
