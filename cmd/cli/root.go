// Package cli implements keyreg-admin, which loads key records from a JSON fixture into
// an in-memory registry and queries or transitions them.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/keyreg/internal/application"
	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/internal/domain/service"
	"github.com/turtacn/keyreg/internal/infrastructure/monitoring"
	"github.com/turtacn/keyreg/internal/infrastructure/persistence/memory"
	"github.com/turtacn/keyreg/pkg/logger"
)

// options holds the persistent flags shared by every command.
type options struct {
	fixture     string
	at          string
	actor       string
	maxParallel int
	verbose     bool
}

// registry is the in-memory registry a command runs against.
type registry struct {
	keys  *application.KeyRegistryService
	bulk  *application.BulkCoordinator
	audit *application.AuditQueryService
}

// NewRootCommand builds the keyreg-admin command tree.
// NewRootCommand 构建 keyreg-admin 命令树。
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "keyreg-admin",
		Short: "Query and transition key records loaded from a fixture file",
		Long: `keyreg-admin loads key records from a JSON fixture into an in-memory registry
and runs one command against them, printing the result as JSON.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.fixture, "fixture", "f", "", "JSON fixture with keys and transitions (required)")
	flags.StringVar(&opts.at, "at", "", "evaluate as of this RFC3339 time instead of now")
	flags.StringVar(&opts.actor, "actor", "keyreg-admin", "actor recorded in audit events")
	flags.IntVar(&opts.maxParallel, "parallel", 1, "targets applied concurrently by bulk")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	_ = root.MarkPersistentFlagRequired("fixture")

	root.AddCommand(newQueryCommand(opts), newBulkCommand(opts), newTickCommand(opts), newAuditCommand(opts))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// open builds a registry from the fixture and returns a context carrying the actor.
func (o *options) open(ctx context.Context) (*registry, context.Context, error) {
	log := logger.NewNoopLogger()
	if o.verbose {
		zl, err := monitoring.NewZapLogger(&config.LogConfig{Level: "debug", Format: "console", OutputPath: "stderr"})
		if err != nil {
			return nil, ctx, err
		}
		log = zl
	}

	var clock service.Clock = service.SystemClock{}
	if o.at != "" {
		at, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			return nil, ctx, fmt.Errorf("invalid --at: %w", err)
		}
		clock = fixedClock(at.UTC())
	}

	keys := memory.NewKeyStore(memory.WithClock(clock.Now))
	events := memory.NewAuditStore()
	svcOpts := []application.Option{application.WithClock(clock)}
	keyRegistry := application.NewKeyRegistryService(keys, events, nil, nil, log, svcOpts...)
	reg := &registry{
		keys: keyRegistry,
		bulk: application.NewBulkCoordinator(keyRegistry, memory.NewConfirmationStore(time.Minute), events,
			config.BulkConfig{MaxParallel: o.maxParallel}, nil, log, svcOpts...),
		audit: application.NewAuditQueryService(events, nil, log, svcOpts...),
	}

	ctx = application.WithActor(ctx, o.actor, "")
	if err := loadFixture(ctx, o.fixture, reg.keys); err != nil {
		return nil, ctx, err
	}
	return reg, ctx, nil
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
