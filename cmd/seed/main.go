package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/config"
	repo "github.com/Kwendataxi/kwenda-sub010/internal/adapter/postgres"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/auth"
	"github.com/Kwendataxi/kwenda-sub010/pkg/postgres"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

// Seeds a handful of demo drivers and prints bearer tokens for each
// role so the API can be exercised without a separate identity service.
func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	seedDefaultDrivers(ctx, client)
	printDemoTokens(cfg.Auth.JWTSecret)
}

func seedDefaultDrivers(ctx context.Context, db *postgres.PostgreDB) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	drivers := []models.Driver{
		{ID: uuid.New(), Name: "Beka", ServiceClass: types.ClassStandard, Rating: 4.8, Status: types.DriverOffline},
		{ID: uuid.New(), Name: "Mans", ServiceClass: types.ClassExpress, Rating: 4.6, Status: types.DriverOffline},
		{ID: uuid.New(), Name: "Temu", ServiceClass: types.ClassFreight, Rating: 4.9, Status: types.DriverOffline},
	}

	driverRepo := repo.NewDriverRepo(db.Pool)
	for _, d := range drivers {
		if err := driverRepo.Upsert(ctx, &d); err != nil {
			log.Fatalf("seed driver %s: %v", d.Name, err)
		}
		log.Printf("seeded driver %s (%s) id=%s", d.Name, d.ServiceClass, d.ID)
	}
}

func printDemoTokens(secret string) {
	tokens := auth.NewTokenService(secret, 24*time.Hour)

	for _, role := range []types.Role{types.RoleRider, types.RoleDriver, types.RoleService} {
		token, err := tokens.Issue(uuid.New(), role)
		if err != nil {
			log.Fatalf("issue %s token: %v", role, err)
		}
		log.Printf("%s token: %s", role, token)
	}
}
