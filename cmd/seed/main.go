package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fixpoint/backend/internal/auth"
	"github.com/fixpoint/backend/internal/config"
	"github.com/fixpoint/backend/internal/db"
	"github.com/fixpoint/backend/internal/models"
)

type seedUser struct {
	name     string
	password string
	role     models.Role
}

var seedUsers = []seedUser{
	{"dispatcher", "dispatcher123", models.RoleDispatcher},
	{"master1", "master123", models.RoleMaster},
	{"master2", "master123", models.RoleMaster},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.With().Str("service", "fixpoint-seed").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	users := map[string]models.User{}
	now := time.Now().UTC()
	for _, su := range seedUsers {
		hash, err := auth.HashPassword(su.password)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to hash password")
		}
		u, err := store.UpsertUser(ctx, models.User{
			ID:           uuid.NewString(),
			Name:         su.name,
			Role:         su.role,
			PasswordHash: hash,
			CreatedAt:    now,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("name", su.name).Msg("failed to upsert user")
		}
		users[su.name] = u
	}

	if _, err := store.Pool.Exec(ctx, `DELETE FROM requests`); err != nil {
		logger.Fatal().Err(err).Msg("failed to reset requests")
	}

	master1 := users["master1"].ID
	master2 := users["master2"].ID
	takenAt := now

	seedRequests := []models.Request{
		{ClientName: "Ivan", Phone: "+70000000001", Address: "Lenina st. 1", ProblemText: "Socket does not work", Status: models.StatusNew},
		{ClientName: "Petr", Phone: "+70000000002", Address: "Mira st. 10", ProblemText: "Leaking tap", Status: models.StatusAssigned, AssignedTo: &master1},
		{ClientName: "Anna", Phone: "+70000000003", Address: "Pobedy ave. 5", ProblemText: "Broken door", Status: models.StatusAssigned, AssignedTo: &master2},
		{ClientName: "Maria", Phone: "+70000000004", Address: "Sadovaya st. 7", ProblemText: "Radiator is cold", Status: models.StatusInProgress, AssignedTo: &master1, TakenAt: &takenAt},
		{ClientName: "Oleg", Phone: "+70000000005", Address: "Centralnaya st. 3", ProblemText: "Noisy air conditioner", Status: models.StatusDone, AssignedTo: &master2, TakenAt: &takenAt},
		{ClientName: "Sergey", Phone: "+70000000006", Address: "Parkovaya st. 9", ProblemText: "Broken lock", Status: models.StatusCanceled, AssignedTo: &master2},
	}

	for i, r := range seedRequests {
		r.ID = uuid.NewString()
		r.CreatedAt = now.Add(time.Duration(i) * time.Second)
		r.UpdatedAt = r.CreatedAt
		if err := store.InsertRequest(ctx, r); err != nil {
			logger.Fatal().Err(err).Str("client", r.ClientName).Msg("failed to insert request")
		}
	}

	logger.Info().Int("users", len(seedUsers)).Int("requests", len(seedRequests)).Msg("seed complete")
}
