package cmd

import (
	"io/ioutil"
	"net/http"
	"regexp"
	"time"

	"github.com/monoforge/kit/mq"
	"github.com/monoforge/kit/objects"
	"github.com/monoforge/kit/pack"
	"github.com/monoforge/kit/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type service struct {
	method string
	handle func(h *pack.Handler, w http.ResponseWriter, r *http.Request, subpath string)
}

var routes = []struct {
	pattern *regexp.Regexp
	svc     service
}{
	{regexp.MustCompile(`^(.*)/info/refs$`), service{method: http.MethodGet, handle: serveInfoRefs}},
	{regexp.MustCompile(`^(.*)/git-upload-pack$`), service{method: http.MethodPost, handle: serveUploadPack}},
	{regexp.MustCompile(`^(.*)/git-receive-pack$`), service{method: http.MethodPost, handle: serveReceivePack}},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monorepo pack server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func openStore() (store.ObjectStore, error) {
	if cfg.Driver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		return store.NewGormStore(db)
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return store.NewGormStore(db)
}

func runServe() error {
	s, err := openStore()
	if err != nil {
		return err
	}

	handler := pack.New(s, cfg.DefaultBranch, cfg.UnpackBatchSize)
	mq.Init(cfg.MQWorkers, 1, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		for _, route := range routes {
			m := route.pattern.FindStringSubmatch(r.URL.Path)
			if m == nil || r.Method != route.svc.method {
				continue
			}
			route.svc.handle(handler, w, r, m[1])
			return
		}
		http.NotFound(w, r)
	})

	log.Info("starting server", "addr", cfg.Addr)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

func serveInfoRefs(h *pack.Handler, w http.ResponseWriter, r *http.Request, subpath string) {
	ref, err := h.HeadHash(subpath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ref == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/x-git-upload-pack-advertisement")
	_, _ = w.Write([]byte(h.Advertisement(ref)))
}

func serveUploadPack(h *pack.Handler, w http.ResponseWriter, r *http.Request, subpath string) {
	data, err := h.FullPack()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
	_, _ = w.Write(data)
}

func serveReceivePack(h *pack.Handler, w http.ResponseWriter, r *http.Request, subpath string) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fromHash := objects.ID(r.URL.Query().Get("from"))
	toHash := objects.ID(r.URL.Query().Get("to"))

	if err := h.Unpack(subpath, fromHash, toHash, body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
