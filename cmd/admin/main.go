package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"postura/api/internal/catalog"
	"postura/api/internal/config"
	"postura/api/internal/database"
	"postura/api/internal/log"
	"postura/api/internal/repository"
	"postura/api/internal/security"
	"postura/api/internal/service"
)

var commandTimeout time.Duration

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "postura-admin",
	Short:        "Operator tasks for the Postura backend",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&commandTimeout, "timeout", 30*time.Second, "Deadline for the whole command")

	rootCmd.AddCommand(createInternalUserCmd)
	rootCmd.AddCommand(ensureIndexesCmd)
	rootCmd.AddCommand(catalogCmd)
}

// env holds what every command needs: config, logger and a connected
// database.
type env struct {
	cfg    *config.AppConfig
	log    zerolog.Logger
	client *mongo.Client
	db     *mongo.Database
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := log.New(cfg.Environment, "admin")

	client, err := database.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: logger, client: client, db: client.Database(cfg.Mongo.Database)}, nil
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.client.Disconnect(ctx)
}

func withEnv(run func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		e, err := connect(ctx)
		if err != nil {
			return err
		}
		defer e.close()
		return run(ctx, e, args)
	}
}

// ── create-internal-user ─────────────────────────────────────────────────────

var (
	internalEmail    string
	internalPassword string
)

var createInternalUserCmd = &cobra.Command{
	Use:   "create-internal-user",
	Short: "Create an operator account for the admin endpoints",
	Long: `Creates an internal user. The password may also be passed in
POSTURA_ADMIN_PASSWORD so it does not end up in shell history.`,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		password := internalPassword
		if password == "" {
			password = os.Getenv("POSTURA_ADMIN_PASSWORD")
		}

		admins := service.NewAdminService(
			repository.NewInternalUserRepository(e.db),
			security.NewTokenFactory(e.cfg.Security.AccessTokenSecret),
			e.log,
		)
		user, err := admins.CreateInternalUser(ctx, internalEmail, password)
		if err != nil {
			return err
		}
		fmt.Printf("created internal user %s (%s)\n", user.Email, user.ID.Hex())
		return nil
	}),
}

func init() {
	createInternalUserCmd.Flags().StringVar(&internalEmail, "email", "", "Operator email address")
	createInternalUserCmd.Flags().StringVar(&internalPassword, "password", "", "Operator password")
	_ = createInternalUserCmd.MarkFlagRequired("email")
}

// ── ensure-indexes ───────────────────────────────────────────────────────────

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create the collection indexes the API relies on",
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		if err := repository.EnsureIndexes(ctx, e.db); err != nil {
			return err
		}
		fmt.Println("indexes ready")
		return nil
	}),
}

// ── catalog ──────────────────────────────────────────────────────────────────

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Load the workout and training plan catalog and print it",
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		cat := catalog.New(repository.NewCatalogRepository(e.db), time.Now, e.log)
		if err := cat.Refresh(ctx); err != nil {
			return err
		}
		workouts, err := cat.Workouts.Get(ctx, false)
		if err != nil {
			return err
		}
		plans, err := cat.Plans.Get(ctx, false)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tID\tNAME")
		for _, workout := range workouts {
			fmt.Fprintf(w, "workout\t%s\t%s\n", workout.Key(), workout.Name)
		}
		for _, plan := range plans {
			fmt.Fprintf(w, "plan\t%s\t%s\n", plan.Key(), plan.Name)
		}
		return w.Flush()
	}),
}
