package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/codonhmm/pkg/engine/training"
	"github.com/lintang-b-s/codonhmm/pkg/genome"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/lintang-b-s/codonhmm/pkg/kv"
	"github.com/lintang-b-s/codonhmm/pkg/util"
)

var (
	dbDir       = flag.String("db", "./codonhmm_db", "badger directory for model snapshots")
	runName     = flag.String("name", "gene", "name of the training run, snapshots are stored under it")
	method      = flag.String("method", "baumwelch", "training method: counting, baumwelch or viterbi")
	iterations  = flag.Int("iterations", 20, "number of baum-welch or viterbi training iterations")
	tolerance   = flag.Float64("tol", 0, "stop when the log-likelihood improves by less than this, 0 runs every iteration")
	genomeFiles = flag.String("genomes", "genome1.fa,genome2.fa,genome3.fa,genome4.fa,genome5.fa", "comma separated fasta files, .zst files are decompressed")
	annotations = flag.String("annotations", "", "comma separated fasta annotation files for the counting trainer")
	modelFile   = flag.String("model", "", "dot file with the initial model, overrides -init")
	initModel   = flag.String("init", "gene", "initial model when -model is empty: gene or three")
	seed        = flag.Uint64("seed", 0xDEADBEEF, "seed of the random gene model emissions")
	outDir      = flag.String("out", "", "write the model of every iteration as a dot file into this directory")
	uniformRows = flag.Bool("uniform", false, "fill rows without counts uniformly instead of leaving them empty")
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	log.Printf("loading genomes...")
	seqs, err := genome.ReadSequencesFromFiles(util.SplitList(*genomeFiles))
	if err != nil {
		log.Fatal(err)
	}

	model, err := initialModel()
	if err != nil {
		log.Fatal(err)
	}

	db, err := badger.Open(badger.DefaultOptions(*dbDir))
	if err != nil {
		log.Fatal(err)
	}
	store := kv.NewKVDB(db)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := training.DefaultConfig()
	if *uniformRows {
		cfg.EmptyRows = training.UniformRow
	}

	if *method == "counting" {
		if err := trainByCounting(model, seqs, cfg); err != nil {
			log.Fatal(err)
		}
		if err := checkpoint(ctx, store, model, 0, math.NaN()); err != nil {
			log.Fatal(err)
		}
		log.Printf("counting training done")
		return
	}

	prev := math.Inf(-1)
	for i := 1; i <= *iterations; i++ {
		log.Printf("running iteration %d of %s training", i, *method)

		var ll float64
		switch *method {
		case "baumwelch":
			ll, err = training.TrainByBaumWelch(model, seqs, cfg)
		case "viterbi":
			ll, err = training.TrainByViterbi(model, seqs, cfg)
		default:
			log.Fatalf("unknown training method %q", *method)
		}
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("iteration %d: log-likelihood %.4f", i, ll)

		if err := checkpoint(ctx, store, model, i, ll); err != nil {
			log.Fatal(err)
		}
		if *tolerance > 0 && ll-prev < *tolerance {
			log.Printf("converged after %d iterations", i)
			break
		}
		prev = ll
	}
}

func initialModel() (*hmm.Model, error) {
	if *modelFile != "" {
		f, err := os.Open(*modelFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return hmm.ReadDot(f)
	}
	switch *initModel {
	case "gene":
		return genome.NewGeneModel(*seed)
	case "three":
		return genome.NewThreeStateModel()
	default:
		return nil, fmt.Errorf("unknown initial model %q", *initModel)
	}
}

func trainByCounting(model *hmm.Model, seqs []string, cfg training.Config) error {
	if *annotations == "" {
		return fmt.Errorf("counting training needs -annotations")
	}
	anns, err := genome.ReadSequencesFromFiles(util.SplitList(*annotations))
	if err != nil {
		return err
	}
	if len(anns) != len(seqs) {
		return fmt.Errorf("got %d genomes and %d annotations", len(seqs), len(anns))
	}

	log.Printf("parsing annotations...")
	labels := make([][]string, len(seqs))
	for i := range seqs {
		labels[i], err = genome.ParseAnnotation(seqs[i], anns[i])
		if err != nil {
			return fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return training.TrainByCounting(model, seqs, labels, cfg)
}

// checkpoint. store the model of iteration and dump it as dot when -out is set. the model has to
// finalize, so a training step that left a row empty stops here.
func checkpoint(ctx context.Context, store *kv.KVDB, model *hmm.Model, iteration int, ll float64) (err error) {
	if err := model.Finalize(); err != nil {
		return fmt.Errorf("iteration %d: %w", iteration, err)
	}
	defer model.Unlock()

	if err := store.SaveModel(ctx, *runName, iteration, model, ll); err != nil {
		return err
	}
	if *outDir == "" {
		return nil
	}

	path := filepath.Join(*outDir, fmt.Sprintf("model_%s_%d.dot", *runName, iteration))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return model.WriteDot(f)
}
