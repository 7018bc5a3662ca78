package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fablekeep/fablekeep/pkg/storage/postgres"
	"github.com/fablekeep/fablekeep/pkg/token"
)

const usage = `Usage: fablekeep-admin [flags] <command> [args]

Commands:
  revoke <refresh-token>   revoke a single refresh token
  revoke-all <user-id>     revoke every session for a user
  sweep                    delete refresh rows expired past the retention window

Flags:
`

func main() {
	postgresURL := flag.String("postgres-url", os.Getenv("FABLEKEEP_POSTGRES_URL"), "PostgreSQL connection URL")
	retention := flag.Duration("retention", token.DefaultRetention, "sweep retention window")
	timeout := flag.Duration("timeout", 30*time.Second, "operation timeout")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *postgresURL == "" {
		log.Fatal("postgres URL is required (flag -postgres-url or FABLEKEEP_POSTGRES_URL)")
	}

	db, err := postgres.Connect(postgres.DefaultConnectionConfig(*postgresURL))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to postgres")
	}
	defer db.Close()
	store := postgres.NewStore(db)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch flag.Arg(0) {
	case "revoke":
		if flag.NArg() != 2 {
			log.Fatal("revoke needs exactly one refresh token argument")
		}
		if err := store.RevokeRefreshToken(ctx, flag.Arg(1)); err != nil {
			log.WithError(err).Fatal("Failed to revoke refresh token")
		}
		log.Info("Refresh token revoked")

	case "revoke-all":
		if flag.NArg() != 2 {
			log.Fatal("revoke-all needs exactly one user id argument")
		}
		userID, err := uuid.Parse(flag.Arg(1))
		if err != nil {
			log.WithError(err).Fatal("Invalid user id")
		}
		if err := store.RevokeAllRefreshTokens(ctx, userID); err != nil {
			log.WithError(err).Fatal("Failed to revoke sessions")
		}
		log.WithField("user_id", userID).Info("All sessions revoked")

	case "sweep":
		sweeper := token.NewSweeper(store, *retention, nil)
		n, err := sweeper.SweepOnce(ctx)
		if err != nil {
			log.WithError(err).Fatal("Sweep failed")
		}
		log.WithField("deleted", n).Info("Sweep complete")

	default:
		log.Errorf("Unknown command %q", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}
}
