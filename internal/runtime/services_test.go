package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven/mocks"
)

func TestServices_EmbeddingService_DefaultNil(t *testing.T) {
	services := NewServices()
	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service by default")
	}
}

func TestServices_SetEmbeddingService(t *testing.T) {
	services := NewServices()
	svc := mocks.NewMockEmbeddingService()

	services.SetEmbeddingService(svc)
	if services.EmbeddingService() == nil {
		t.Error("expected embedding service to be set")
	}
}

func TestServices_SetEmbeddingService_ClosesOld(t *testing.T) {
	services := NewServices()
	old := mocks.NewMockEmbeddingService()
	services.SetEmbeddingService(old)

	services.SetEmbeddingService(mocks.NewMockEmbeddingService())
	if !old.Closed() {
		t.Error("expected replaced service to be closed")
	}
}

func TestServices_ValidateAndSetEmbedding_Healthy(t *testing.T) {
	services := NewServices()
	svc := mocks.NewMockEmbeddingService()

	if err := services.ValidateAndSetEmbedding(context.Background(), svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if services.EmbeddingService() == nil {
		t.Error("expected embedding service to be set")
	}
}

func TestServices_ValidateAndSetEmbedding_Unhealthy(t *testing.T) {
	services := NewServices()
	svc := mocks.NewMockEmbeddingService()
	svc.HealthErr = errors.New("connection refused")

	if err := services.ValidateAndSetEmbedding(context.Background(), svc); err == nil {
		t.Fatal("expected health check error")
	}
	if services.EmbeddingService() != nil {
		t.Error("expected no service set after failed validation")
	}
	if !svc.Closed() {
		t.Error("expected rejected service to be closed")
	}
}

func TestServices_ValidateAndSetEmbedding_Nil(t *testing.T) {
	services := NewServices()
	services.SetEmbeddingService(mocks.NewMockEmbeddingService())

	if err := services.ValidateAndSetEmbedding(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if services.EmbeddingService() != nil {
		t.Error("expected embedding service to be cleared")
	}
}

func TestServices_Close(t *testing.T) {
	services := NewServices()
	svc := mocks.NewMockEmbeddingService()
	services.SetEmbeddingService(svc)

	if err := services.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.Closed() {
		t.Error("expected service to be closed")
	}
	if services.EmbeddingService() != nil {
		t.Error("expected service cleared after close")
	}
}
