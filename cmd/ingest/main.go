// cmd/ingest/main.go
package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/mounika-192643/InsightSphere-AI/internal/config"
	"github.com/mounika-192643/InsightSphere-AI/internal/ingest"
	"github.com/mounika-192643/InsightSphere-AI/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	source, err := ingest.NewDriveSource(cfg.Ingest.DriveCredentialsJSON)
	if err != nil {
		log.Fatalf("Failed to initialize Google Drive source: %v", err)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	catalogRepo := postgres.NewCatalogRepository(db)
	ingestService := ingest.NewService(source, catalogRepo)

	r := mux.NewRouter()
	ingestHandler := ingest.NewHandler(source, ingestService, cfg.Ingest.DownloadDir)
	ingestHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Ingest server starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
