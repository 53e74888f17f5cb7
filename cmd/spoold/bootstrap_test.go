package main

import (
	"context"
	"testing"

	"spool/internal/logging"
	"spool/internal/status"
	"spool/internal/testsupport"
)

func TestBuildStagesProducesFullSet(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)

	stages := buildStages(cfg, store, logging.NewNop(), status.New())

	if stages.Extractor == nil || stages.Transfer == nil || stages.Organizer == nil {
		t.Fatalf("expected all stage handlers, got %+v", stages)
	}

	health := stages.Transfer.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("transfer stage unhealthy with stubbed binaries: %s", health.Detail)
	}
}
