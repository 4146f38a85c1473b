package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type runBucket interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Keys(ctx context.Context, opts ...jetstream.WatchOpt) ([]string, error)
}

// RunStore keeps the latest event of every step in a key value bucket under <run id>.<step>, so
// the state of a run can be looked up after it finished.
type RunStore struct {
	kv runBucket
}

func NewRunStore(ctx context.Context, nc *nats.Conn, bucket string) (*RunStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to jetstream: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("unable to get the %s key value store: %w", bucket, err)
	}

	return &RunStore{kv: kv}, nil
}

func runKey(runId string, step string) string {
	return token(runId) + "." + token(step)
}

func (s *RunStore) Report(ctx context.Context, evt StepEvent) {
	b, err := json.Marshal(evt)
	if err != nil {
		log.Warn().Err(err).Msg("unable to marshal step event")
		return
	}

	if _, err := s.kv.Put(ctx, runKey(evt.RunId, evt.Step), b); err != nil {
		log.Warn().Err(err).Str("step", evt.Step).Msg("unable to store step event")
	}
}

func (s *RunStore) Close() error {
	return nil
}

// Steps returns the stored events of a run, oldest first.
func (s *RunStore) Steps(ctx context.Context, runId string) ([]StepEvent, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to list stored runs: %w", err)
	}

	prefix := token(runId) + "."

	var result []StepEvent
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		log.Debug().Msgf("getting step event from key %s", key)
		e, err := s.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("unable to get step event %s: %w", key, err)
		}

		var evt StepEvent
		if err := json.Unmarshal(e.Value(), &evt); err != nil {
			return nil, fmt.Errorf("unable to decode step event %s: %w", key, err)
		}
		result = append(result, evt)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}
