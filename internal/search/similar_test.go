package search

import (
	"context"
	"errors"
	"testing"
)

func TestSimilarReturnsNearestNeighbors(t *testing.T) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	store.addImage(embedder, "FOLDER1", "source", "source.jpg", []float32{0, 0})
	store.addImage(embedder, "FOLDER1", "close", "close.jpg", []float32{0.1, 0})
	store.addImage(embedder, "FOLDER1", "closer", "closer.jpg", []float32{0.05, 0})
	store.addImage(embedder, "FOLDER1", "far", "far.jpg", []float32{2, 0})

	service := newTestService(store, embedder)

	results, err := service.Similar(context.Background(), "FOLDER1", "source", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(results))
	}
	if results[0].PhotoID != "closer" || results[1].PhotoID != "close" {
		t.Errorf("unexpected neighbor order: %s, %s", results[0].PhotoID, results[1].PhotoID)
	}
	for _, r := range results {
		if r.PhotoID == "source" {
			t.Error("the source photo must not appear among its own neighbors")
		}
	}
}

func TestSimilarPhotoNotInCollection(t *testing.T) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	store.addImage(embedder, "FOLDER1", "p1", "p1.jpg", []float32{0.1, 0})

	service := newTestService(store, embedder)

	_, err := service.Similar(context.Background(), "FOLDER1", "missing", 5)
	if !errors.Is(err, ErrPhotoNotInCollection) {
		t.Fatalf("expected ErrPhotoNotInCollection, got %v", err)
	}
}

func TestSimilarFacelessSourceIsEmpty(t *testing.T) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	store.addImage(embedder, "FOLDER1", "source", "source.jpg", nil)
	store.addImage(embedder, "FOLDER1", "p1", "p1.jpg", []float32{0.1, 0})

	service := newTestService(store, embedder)

	results, err := service.Similar(context.Background(), "FOLDER1", "source", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", results)
	}
}

func TestSimilarInvalidReference(t *testing.T) {
	service := newTestService(newFakeStore(), newFakeEmbedder())

	_, err := service.Similar(context.Background(), "https://example.com/", "p1", 5)
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestSimilarDefaultLimit(t *testing.T) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	store.addImage(embedder, "FOLDER1", "source", "source.jpg", []float32{0, 0})
	for i := range 15 {
		id := string(rune('a' + i))
		store.addImage(embedder, "FOLDER1", id, id+".jpg", []float32{float32(i+1) * 0.01, 0})
	}

	service := newTestService(store, embedder)

	results, err := service.Similar(context.Background(), "FOLDER1", "source", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("expected the default limit of 10 neighbors, got %d", len(results))
	}
}
