// Command bptreeload is a synthetic load generator for a B+-tree index: on
// a cron schedule it inserts a batch of random records and logs a summary.
// It is the "random record generation for demos" external collaborator the
// core index explicitly does not specify, built as a standalone tool that
// only talks to the tree through its public Insert operation.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"bptreedb/internal/btree"
	"bptreedb/internal/config"
	"bptreedb/internal/pager"
	"bptreedb/record"
)

var (
	flagData      = flag.String("data", "", "path to the index file (default derived from the run ID)")
	flagConfig    = flag.String("config", "", "optional YAML config file (flags override its values)")
	flagPageSize  = flag.Int("page-size", 0, "page size in bytes, power of two (0 = use config/default)")
	flagBranching = flag.Int("branching", 0, "branching factor B (0 = use config/default)")
	flagSchedule  = flag.String("schedule", "@every 2s", "cron schedule (robfig/cron syntax) on which to insert a batch")
	flagBatch     = flag.Int("batch", 10, "number of random records inserted per tick")
)

func main() {
	flag.Parse()

	runID := uuid.New()

	cfg := config.Default()
	if *flagConfig != "" {
		loaded, err := config.LoadFile(*flagConfig)
		if err != nil {
			log.Fatalf("bptreeload: %v", err)
		}
		cfg = loaded
	}
	if *flagPageSize != 0 {
		cfg.PageSize = *flagPageSize
	}
	if *flagBranching != 0 {
		cfg.Branching = *flagBranching
	}
	if *flagData != "" {
		cfg.DataFile = *flagData
	} else {
		cfg.DataFile = fmt.Sprintf("bptreeload-%s.db", runID)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("bptreeload: %v", err)
	}

	store, err := pager.OpenFileStore(cfg.DataFile, cfg.PageSize)
	if err != nil {
		log.Fatalf("bptreeload: %v", err)
	}
	defer store.Close()

	tree, err := btree.Open(store, cfg.Branching)
	if err != nil {
		log.Fatalf("bptreeload: open: %v", err)
	}

	log.Printf("run %s starting: data=%s page-size=%d branching=%d schedule=%q batch=%d",
		runID, cfg.DataFile, cfg.PageSize, cfg.Branching, *flagSchedule, *flagBatch)

	rng := rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(runID[:8]))))
	ticks := 0
	inserted := 0

	// The tree is single-threaded and non-shareable; SkipIfStillRunning
	// keeps cron from ever starting a second tick's inserts concurrently
	// with one still running, so no locking is needed around Insert.
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err = c.AddFunc(*flagSchedule, func() {
		for i := 0; i < *flagBatch; i++ {
			rec := record.Random(rng)
			if err := tree.Insert(rec); err != nil {
				log.Printf("run %s: insert failed: %v", runID, err)
				return
			}
			inserted++
		}
		ticks++
		log.Printf("run %s: tick %d, %d records inserted so far", runID, ticks, inserted)
	})
	if err != nil {
		log.Fatalf("bptreeload: schedule: %v", err)
	}

	c.Start()
	defer c.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Printf("run %s: shutting down after %d ticks, %d records inserted", runID, ticks, inserted)
}
