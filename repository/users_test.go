package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func testUserRepository(t *testing.T) (*UserRepository, *mongo.Database) {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo connect: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("mongo ping failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	})

	db := client.Database("eduvisor_test")
	return NewUserRepository(db), db
}

func cleanupUser(t *testing.T, db *mongo.Database, userID string) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db.Collection("users").DeleteOne(ctx, bson.M{"user_id": userID})
	})
}

func TestAddTokensUsedConcurrent(t *testing.T) {
	users, db := testUserRepository(t)
	ctx := context.Background()

	userID := fmt.Sprintf("load-test-%d", time.Now().UnixNano())
	cleanupUser(t, db, userID)

	const workers = 20
	const delta = int64(7)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := users.AddTokensUsed(ctx, userID, delta); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AddTokensUsed: %v", err)
	}

	total, err := users.GetTokensUsed(ctx, userID)
	if err != nil {
		t.Fatalf("GetTokensUsed: %v", err)
	}
	if want := int64(workers) * delta; total != want {
		t.Errorf("concurrent increments lost updates: total = %d, want %d", total, want)
	}
}

func TestIncrementChatSequenceConcurrent(t *testing.T) {
	users, db := testUserRepository(t)
	ctx := context.Background()

	userID := fmt.Sprintf("seq-test-%d", time.Now().UnixNano())
	cleanupUser(t, db, userID)

	const workers = 20

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := users.IncrementChatSequence(ctx, userID)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			if seen[seq] {
				errs <- fmt.Errorf("sequence %d assigned twice", seq)
			}
			seen[seq] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("IncrementChatSequence: %v", err)
	}

	if len(seen) != workers {
		t.Fatalf("got %d distinct sequence numbers, want %d", len(seen), workers)
	}
	for seq := int64(1); seq <= workers; seq++ {
		if !seen[seq] {
			t.Errorf("sequence %d never assigned", seq)
		}
	}

	current, err := users.GetChatSequence(ctx, userID)
	if err != nil {
		t.Fatalf("GetChatSequence: %v", err)
	}
	if current != workers {
		t.Errorf("final sequence = %d, want %d", current, workers)
	}
}
