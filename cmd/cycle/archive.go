// cmd/cycle/archive.go
package main

import (
	"fmt"
	"log"

	"github.com/urfave/cli/v2"

	"github.com/mounika-192643/InsightSphere-AI/internal/config"
	"github.com/mounika-192643/InsightSphere-AI/internal/storage"
)

func openArchive() (*storage.CycleArchive, error) {
	cfg := config.Load()
	if !cfg.Archive.Enabled {
		return nil, fmt.Errorf("cycle archive is not enabled, set ARCHIVE_ENABLED=true")
	}

	store, err := storage.NewMinioClient(storage.MinioConfig{
		Endpoint:  cfg.Archive.Endpoint,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		Bucket:    cfg.Archive.Bucket,
		Region:    cfg.Archive.Region,
		UseSSL:    cfg.Archive.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to archive storage: %w", err)
	}

	return storage.NewCycleArchive(store), nil
}

func listArchivedCycles(c *cli.Context) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}

	objects, err := archive.List(c.Context, c.String("business-id"))
	if err != nil {
		return fmt.Errorf("failed to list archived cycles: %w", err)
	}

	for _, obj := range objects {
		log.Printf("%s (%d bytes)\n", obj.Key, obj.Size)
	}
	log.Printf("%d archived cycles\n", len(objects))
	return nil
}

func pullArchivedCycle(c *cli.Context) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}

	cycleKey := c.String("cycle-key")
	out := c.String("out")
	if out == "" {
		out = cycleKey + ".json"
	}

	if err := archive.Pull(c.Context, c.String("business-id"), cycleKey, out); err != nil {
		return fmt.Errorf("failed to pull archived cycle: %w", err)
	}

	log.Printf("Wrote %s\n", out)
	return nil
}
