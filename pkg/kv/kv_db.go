package kv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
)

var (
	ErrModelNotFound = errors.New("model not found")
	ErrTraceNotFound = errors.New("trace not found")
)

const (
	modelPrefix = "model/"
	tracePrefix = "trace/"
	batchSize   = 1000
)

// KVDB. model snapshots and decoded traces on top of badger.
//
//	model/<name>/<iteration, 6 digits> -> compressed model snapshot
//	trace/<model>/<sequence>           -> compressed trace
type KVDB struct {
	db *badger.DB
}

func NewKVDB(db *badger.DB) *KVDB {
	return &KVDB{db}
}

func modelKey(name string, iteration int) []byte {
	return []byte(fmt.Sprintf("%s%s/%06d", modelPrefix, name, iteration))
}

func traceKey(model, seq string) []byte {
	return []byte(tracePrefix + model + "/" + seq)
}

func checkName(kind, name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

// SaveModel. store a snapshot of model as iteration of the training run called name.
func (k *KVDB) SaveModel(ctx context.Context, name string, iteration int, model *hmm.Model, logLikelihood float64) error {
	if err := checkName("model", name); err != nil {
		return err
	}
	if iteration < 0 {
		return fmt.Errorf("invalid iteration %d", iteration)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	val, err := encodeSnapshot(newSnapshot(name, iteration, model, logLikelihood))
	if err != nil {
		return err
	}

	err = k.db.Update(func(txn *badger.Txn) error {
		return txn.Set(modelKey(name, iteration), val)
	})
	if err != nil {
		return err
	}
	log.Printf("saved model %s iteration %d", name, iteration)
	return nil
}

// GetModel. load iteration of the training run called name. the returned model is unlocked.
func (k *KVDB) GetModel(name string, iteration int) (*StoredModel, error) {
	val, err := k.get(modelKey(name, iteration))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s iteration %d: %w", name, iteration, ErrModelNotFound)
	}
	if err != nil {
		return nil, err
	}

	snap, err := decodeSnapshot(val)
	if err != nil {
		return nil, err
	}
	model, err := snap.toModel()
	if err != nil {
		return nil, err
	}
	return &StoredModel{
		Name:          snap.Name,
		Iteration:     int(snap.Iteration),
		LogLikelihood: snap.LogLikelihood,
		Model:         model,
	}, nil
}

// LatestIteration. highest stored iteration of the training run called name.
func (k *KVDB) LatestIteration(name string) (int, error) {
	prefix := []byte(modelPrefix + name + "/")
	latest := -1
	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			suffix := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			iteration, err := strconv.Atoi(suffix)
			if err != nil {
				return fmt.Errorf("bad model key %q: %w", it.Item().Key(), err)
			}
			latest = max(latest, iteration)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if latest < 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrModelNotFound)
	}
	return latest, nil
}

// LoadModel. GetModel, with a negative iteration meaning the latest one.
func (k *KVDB) LoadModel(name string, iteration int) (*StoredModel, error) {
	if iteration < 0 {
		latest, err := k.LatestIteration(name)
		if err != nil {
			return nil, err
		}
		iteration = latest
	}
	return k.GetModel(name, iteration)
}

// SaveTraces. store traces decoded with the model called model, in batches.
func (k *KVDB) SaveTraces(ctx context.Context, model string, traces []TraceRecord) error {
	if err := checkName("model", model); err != nil {
		return err
	}

	batches := make([]TraceRecord, 0, batchSize)
	for _, trace := range traces {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}
		if err := checkName("sequence", trace.Sequence); err != nil {
			return err
		}

		batches = append(batches, trace)
		if len(batches) == batchSize {
			if err := k.saveBatchTraces(ctx, model, batches); err != nil {
				return err
			}
			batches = make([]TraceRecord, 0, batchSize)
		}
	}

	if len(batches) > 0 {
		return k.saveBatchTraces(ctx, model, batches)
	}
	return nil
}

func (k *KVDB) saveBatchTraces(ctx context.Context, model string, traces []TraceRecord) error {
	batch := k.db.NewWriteBatch()
	defer batch.Cancel()

	for _, trace := range traces {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		val, err := encodeTrace(trace)
		if err != nil {
			return err
		}
		if err := batch.Set(traceKey(model, trace.Sequence), val); err != nil {
			return err
		}
	}

	if err := batch.Flush(); err != nil {
		log.Printf("error saving traces: %v", err)
		return err
	}
	log.Printf("saving %d traces done", len(traces))
	return nil
}

// GetTrace. trace of sequence seq decoded with the model called model.
func (k *KVDB) GetTrace(model, seq string) (TraceRecord, error) {
	val, err := k.get(traceKey(model, seq))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return TraceRecord{}, fmt.Errorf("%s/%s: %w", model, seq, ErrTraceNotFound)
	}
	if err != nil {
		return TraceRecord{}, err
	}
	return decodeTrace(val)
}

func (k *KVDB) get(key []byte) ([]byte, error) {
	var val []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		val, err = item.ValueCopy(nil)
		return err
	})
	return val, err
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
