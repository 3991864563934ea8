// Package main provides a tool to seed a local database with an agency, its owner,
// a developer and a handful of agent profiles, printing a bearer token for each.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -agents 5 -agency "Harbour Realty"
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/agencynet/agencynet-server/internal/auth"
	"github.com/agencynet/agencynet-server/internal/config"
	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/id"
	"github.com/agencynet/agencynet-server/internal/store/sqlite"
)

var (
	agentCount = flag.Int("agents", 3, "Number of unaffiliated agent profiles to create")
	agencyName = flag.String("agency", "Seed Realty", "Name of the seeded agency")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		log.Fatalf("Failed to load auth key: %v", err)
	}
	tokens, err := auth.NewTokenService(hex.EncodeToString(key), 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	dbPath := cfg.Data.DatabasePath()
	fmt.Printf("Opening database at: %s\n", dbPath)

	db, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	owner := createProfile(ctx, db, "owner@seed.example.com", "Agency Owner", domain.RoleAgency, now)

	agency := &domain.Agency{Name: *agencyName, OwnerID: owner.ID}
	agency.ID = id.MustGenerate(id.PrefixAgency)
	agency.InitTimestamps(now)
	if err := db.CreateAgency(ctx, agency); err != nil {
		log.Fatalf("Failed to create agency: %v", err)
	}
	if err := db.SetProfileAgency(ctx, owner.ID, agency.ID, now); err != nil {
		log.Fatalf("Failed to attach owner to agency: %v", err)
	}
	owner.AgencyID = agency.ID

	developer := createProfile(ctx, db, "developer@seed.example.com", "Property Developer", domain.RoleDeveloper, now)

	fmt.Printf("\nAgency %q (%s)\n", agency.Name, agency.ID)
	printToken(tokens, "owner", owner)
	printToken(tokens, "developer", developer)

	for n := 1; n <= *agentCount; n++ {
		email := fmt.Sprintf("agent%d@seed.example.com", n)
		agent := createProfile(ctx, db, email, fmt.Sprintf("Agent %d", n), domain.RoleAgent, now)
		printToken(tokens, "agent", agent)
	}
}

func createProfile(ctx context.Context, db *sqlite.Store, email, name string, role domain.Role, now time.Time) *domain.Profile {
	p := &domain.Profile{Email: email, FullName: name, Role: role}
	p.ID = id.MustGenerate(id.PrefixProfile)
	p.InitTimestamps(now)
	if err := db.CreateProfile(ctx, p); err != nil {
		log.Fatalf("Failed to create profile %s: %v", email, err)
	}
	return p
}

func printToken(tokens *auth.TokenService, label string, p *domain.Profile) {
	token, err := tokens.GenerateAccessToken(p)
	if err != nil {
		log.Fatalf("Failed to mint token for %s: %v", p.Email, err)
	}
	fmt.Printf("  %-9s %-28s %s\n            Bearer %s\n", label, p.Email, p.ID, token)
}
