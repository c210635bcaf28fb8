package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/codonhmm/pkg/engine/inference"
	"github.com/lintang-b-s/codonhmm/pkg/genome"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/lintang-b-s/codonhmm/pkg/kv"
	"github.com/lintang-b-s/codonhmm/pkg/util"
)

var (
	dbDir       = flag.String("db", "./codonhmm_db", "badger directory with model snapshots and traces")
	runName     = flag.String("name", "gene", "training run whose model is used")
	iteration   = flag.Int("iteration", -1, "snapshot iteration, -1 for the latest")
	modelFile   = flag.String("model", "", "dot file with the model, overrides the stored snapshot")
	genomeFiles = flag.String("genomes", "genome6.fa,genome7.fa,genome8.fa,genome9.fa,genome10.fa,genome11.fa", "comma separated fasta files to annotate")
	outDir      = flag.String("out", "predictions", "directory for the predicted annotations")
	compress    = flag.Bool("zstd", false, "compress predictions with zstd")
)

func main() {
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbDir))
	if err != nil {
		log.Fatal(err)
	}
	store := kv.NewKVDB(db)
	defer store.Close()

	model, err := loadModel(store)
	if err != nil {
		log.Fatal(err)
	}
	if err := model.Finalize(); err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, path := range util.SplitList(*genomeFiles) {
		if err := annotateFile(ctx, store, model, path); err != nil {
			log.Fatal(err)
		}
	}
	log.Printf("annotation done")
}

func loadModel(store *kv.KVDB) (*hmm.Model, error) {
	if *modelFile != "" {
		f, err := os.Open(*modelFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return hmm.ReadDot(f)
	}

	stored, err := store.LoadModel(*runName, *iteration)
	if err != nil {
		return nil, err
	}
	log.Printf("using model %s iteration %d", stored.Name, stored.Iteration)
	return stored.Model, nil
}

func annotateFile(ctx context.Context, store *kv.KVDB, model *hmm.Model, path string) error {
	f, err := genome.OpenFile(path)
	if err != nil {
		return err
	}
	records, err := genome.ReadFasta(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	base := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".zst"), ".fa")
	outPath := filepath.Join(*outDir, base+".pred.fa")
	if *compress {
		outPath += ".zst"
	}
	predictions := make([]genome.Record, 0, len(records))
	traces := make([]kv.TraceRecord, 0, len(records))
	for i, rec := range records {
		log.Printf("running viterbi on %s record %d (%d bases)", path, i, len(rec.Seq))
		trace, err := inference.Viterbi(rec.Seq, model)
		if err != nil {
			return fmt.Errorf("%s record %d: %w", path, i, err)
		}
		if !trace.Found() {
			log.Printf("%s record %d: no path explains the sequence", path, i)
			continue
		}

		annotation := genome.FormatAnnotation(model.ExpandPath(trace.States))
		name := rec.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		predictions = append(predictions, genome.Record{Name: name, Seq: annotation})

		states := make([]int32, len(trace.States))
		for j, s := range trace.States {
			states[j] = int32(s)
		}
		traces = append(traces, kv.TraceRecord{
			Sequence:   strings.ReplaceAll(name, "/", "_"),
			States:     states,
			Annotation: annotation,
			LogProb:    trace.LogProb,
		})
	}

	out, err := genome.CreateFile(outPath)
	if err != nil {
		return err
	}
	if err := genome.WriteRecords(out, predictions); err != nil {
		return fmt.Errorf("%s: %w", outPath, err)
	}

	log.Printf("writing %d traces of %s", len(traces), path)
	return store.SaveTraces(ctx, *runName, traces)
}
