// Package testutil holds shared fixtures for package tests: a scratch Mongo
// database, a Redis client, the template engine and request helpers.
package testutil

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// TestDBURI is used unless STRATATOUR_TEST_MONGO_URI is set.
	TestDBURI = "mongodb://localhost:27017"
	// TestDBName prefixes every per-test database.
	TestDBName = "stratatour_test"
)

// Mongo caps database names at 63 bytes.
const maxDBName = 63

var (
	mongoOnce sync.Once
	mongoCli  *mongo.Client
	mongoErr  error
)

func testMongoURI() string {
	if uri := os.Getenv("STRATATOUR_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return TestDBURI
}

// sharedClient connects once per test binary. Packages run in parallel, so
// the pool is sized well above what a single test needs.
func sharedClient() (*mongo.Client, error) {
	mongoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		opts := options.Client().
			ApplyURI(testMongoURI()).
			SetMaxPoolSize(100).
			SetMaxConnIdleTime(30 * time.Second).
			SetServerSelectionTimeout(5 * time.Second)

		mongoCli, mongoErr = mongo.Connect(ctx, opts)
		if mongoErr == nil {
			mongoErr = mongoCli.Ping(ctx, nil)
		}
	})
	return mongoCli, mongoErr
}

// SetupTestDB returns an empty database named after the running test, with
// the content collections' indexes in place. It is dropped again when the
// test ends. Tests that need Mongo fail rather than skip: the content store
// cannot be exercised without it.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	cli, err := sharedClient()
	if err != nil {
		t.Fatalf("test MongoDB at %s unreachable: %v", testMongoURI(), err)
	}

	db := cli.Database(dbNameFor(t.Name()))

	ctx, cancel := TestContext()
	defer cancel()
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop %s: %v", db.Name(), err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop %s on cleanup: %v", db.Name(), err)
		}
	})
	return db
}

// dbNameFor maps a test name onto a legal database name. Names that would
// overflow the limit keep their head and gain a short hash of the full name,
// so sibling subtests with long shared prefixes stay distinct.
func dbNameFor(testName string) string {
	suffix := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, testName)

	name := TestDBName + "_" + suffix
	if len(name) <= maxDBName {
		return name
	}
	sum := sha1.Sum([]byte(testName))
	tag := hex.EncodeToString(sum[:])[:8]
	return name[:maxDBName-len(tag)-1] + "_" + tag
}

// TestContext bounds a test's database calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
