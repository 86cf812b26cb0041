// Command replay rebuilds a journey graph from a signal log file and prints
// the resulting graph statistics. Useful for inspecting a production log
// offline or validating a log before pointing the API server at it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"tripmind-backend/internal/application/builder"
	"tripmind-backend/internal/domain/journey"
	"tripmind-backend/internal/infrastructure/signallog"
)

func main() {
	path := flag.String("log", "tripmind-signals.db", "path to the signal log database")
	flag.Parse()

	if err := run(*path); err != nil {
		log.Fatal(err)
	}
}

func run(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("signal log %q: %w", path, err)
	}

	db, err := signallog.Open(path)
	if err != nil {
		return fmt.Errorf("open signal log: %w", err)
	}
	defer db.Close()

	store, err := signallog.New(db)
	if err != nil {
		return fmt.Errorf("initialize signal log: %w", err)
	}

	ctx := context.Background()
	total, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count signals: %w", err)
	}

	b := builder.New(journey.NewGraph())
	applied, err := store.Replay(ctx, b.ProcessSignal)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	out := struct {
		Path    string        `json:"path"`
		Logged  int64         `json:"logged"`
		Applied int           `json:"applied"`
		Skipped int64         `json:"skipped"`
		Stats   journey.Stats `json:"stats"`
	}{
		Path:    path,
		Logged:  total,
		Applied: applied,
		Skipped: total - int64(applied),
		Stats:   b.Graph().Stats(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
