package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/lintang-b-s/codonhmm/pkg/kv"
	"github.com/lintang-b-s/codonhmm/pkg/server/rest"
	"github.com/lintang-b-s/codonhmm/pkg/server/rest/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	listenAddr = flag.String("listenaddr", ":5050", "server listen address")
	dbDir      = flag.String("db", "./codonhmm_db", "badger directory with model snapshots and traces")
	runName    = flag.String("name", "gene", "training run whose model is served")
	iteration  = flag.Int("iteration", -1, "snapshot iteration, -1 for the latest")
	modelFile  = flag.String("model", "", "dot file with the model, overrides the stored snapshot")
)

func main() {
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbDir))
	if err != nil {
		log.Fatal(err)
	}
	kvDB := kv.NewKVDB(db)
	defer kvDB.Close()

	model, err := loadModel(kvDB)
	if err != nil {
		log.Fatal(err)
	}
	if err := model.Finalize(); err != nil {
		log.Fatal(err)
	}

	annotationSvc, err := service.NewAnnotationService(model, *runName, kvDB)
	if err != nil {
		log.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()

	r.Use(middleware.Logger)

	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/debug", middleware.Profiler())

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	rest.AnnotationRouter(r, annotationSvc, m)

	log.Printf("serving model %s with %d states", *runName, model.NumStates())
	log.Printf("server started at %s\n", *listenAddr)
	log.Fatal(http.ListenAndServe(*listenAddr, r))
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
