package services_test

import (
	"context"
	"testing"

	"podpress/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, "task-42")
	ctx = services.WithStage(ctx, "generation")
	ctx = services.WithClient(ctx, "127.0.0.1")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.TaskIDFromContext(ctx); !ok || id != "task-42" {
		t.Fatalf("unexpected task id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "generation" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if client, ok := services.ClientFromContext(ctx); !ok || client != "127.0.0.1" {
		t.Fatalf("unexpected client: %v %v", client, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.TaskIDFromContext(services.WithTaskID(ctx, "")); ok {
		t.Fatal("expected no task id value")
	}
}
