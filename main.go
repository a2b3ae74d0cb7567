package main

import (
	"flag"
	"log"
	"net/http"
	"path/filepath"

	"github.com/JorgeCoupr/situm-flutter/bridge"
	"github.com/JorgeCoupr/situm-flutter/data"
	"github.com/JorgeCoupr/situm-flutter/sdk"
	"github.com/JorgeCoupr/situm-flutter/sdk/rest"
	"github.com/JorgeCoupr/situm-flutter/sdk/sim"
	"github.com/JorgeCoupr/situm-flutter/server"
)

var (
	configFile = flag.String("config", "situm.toml", "Path to the configuration file")
	address    = flag.String("address", "", "Listen address, overrides the config file")
)

func main() {
	flag.Parse()

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("[main] config: %v", err)
	}
	if *address != "" {
		cfg.Server.Address = *address
	}

	store, err := data.Open(filepath.Join(cfg.Server.DataDir, "cartography.db"))
	if err != nil {
		log.Fatalf("[main] store: %v", err)
	}
	defer store.Close()

	client := rest.New(rest.Options{
		Domain: cfg.Situm.APIDomain,
		Email:  cfg.Situm.User,
		APIKey: cfg.Situm.APIKey,
		Store:  store,
	})

	engine := sim.New(sim.Options{
		BuildingIdentifier: cfg.Sim.Building,
		FloorIdentifier:    cfg.Sim.Floor,
		Center: sdk.Coordinate{
			Latitude:  cfg.Sim.Latitude,
			Longitude: cfg.Sim.Longitude,
		},
	})

	b := bridge.New(bridge.Options{
		Location:    engine,
		Cartography: client,
		Navigation:  client,
		DataDir:     cfg.Server.DataDir,
	})
	defer b.Close()

	mux := http.NewServeMux()
	server.New(b).Register(mux)

	log.Printf("[main] listening on %s", cfg.Server.Address)
	if err := http.ListenAndServe(cfg.Server.Address, mux); err != nil {
		log.Fatalf("[main] serve: %v", err)
	}
}
