package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/admin"
	"github.com/gestaozabele/eventos/internal/db"
	"github.com/gestaozabele/eventos/internal/feature"
)

// operador da linha de comando age como ADMIN.
var operator = admin.Principal{Roles: []string{admin.RoleAdmin}}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	events := admin.NewEventService(admin.NewRepository(pool))
	features := feature.NewService(feature.NewRepository(pool))

	switch cmd {
	case "event":
		if err := runEvent(ctx, events, args); err != nil {
			log.Fatal().Err(err).Msg("falha no comando event")
		}
	case "grant", "revoke":
		if err := runGrant(ctx, features, cmd == "revoke", args); err != nil {
			log.Fatal().Err(err).Msgf("falha ao executar %s", cmd)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "eventos CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  eventos event list")
	fmt.Fprintln(os.Stderr, "  eventos event delete [--yes] <evento>")
	fmt.Fprintln(os.Stderr, "  eventos grant <staff> <evento> <feature>")
	fmt.Fprintln(os.Stderr, "  eventos revoke <staff> <evento> <feature>")
}

func runEvent(ctx context.Context, events *admin.EventService, args []string) error {
	if len(args) == 0 {
		return errors.New("subcomando ausente: list ou delete")
	}
	switch args[0] {
	case "list":
		return runEvents(ctx, events)
	case "delete":
		return runDeleteEvent(ctx, events, args[1:])
	default:
		return fmt.Errorf("subcomando desconhecido: %s", args[0])
	}
}

func runEvents(ctx context.Context, events *admin.EventService) error {
	list, err := events.List(ctx, operator)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("nenhum evento cadastrado")
		return nil
	}
	encoded, _ := json.MarshalIndent(list, "", "  ")
	fmt.Println(string(encoded))
	return nil
}

func runDeleteEvent(ctx context.Context, events *admin.EventService, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	yes := fs.Bool("yes", false, "confirma a exclusão")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("informe o id do evento")
	}

	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("id inválido: %w", err)
	}

	event, err := events.Authorize(ctx, operator, id)
	if err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("o evento %q e todos os seus dados serão apagados; repita com --yes", event.Name)
	}

	summary, err := events.Delete(ctx, operator, id)
	if err != nil {
		return err
	}
	encoded, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(encoded))
	return nil
}

func runGrant(ctx context.Context, features *feature.Service, revoke bool, args []string) error {
	if len(args) != 3 {
		return errors.New("uso: <staff> <evento> <feature>")
	}
	name := args[2]

	staffID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("staff inválido: %w", err)
	}
	eventID, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("evento inválido: %w", err)
	}

	if revoke {
		if err := features.Revoke(ctx, staffID, eventID, name); err != nil {
			return err
		}
		log.Info().Str("staff_id", staffID.String()).Str("feature", name).Msg("funcionalidade revogada")
		return nil
	}

	f, err := features.Grant(ctx, staffID, eventID, name)
	if err != nil {
		return err
	}
	log.Info().Str("staff_id", staffID.String()).Str("feature", string(f)).Msg("funcionalidade liberada")
	return nil
}
