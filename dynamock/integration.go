package dynamock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nisimpson/dynacrud"
	"go.uber.org/zap/zaptest"
)

// maxPrefixName keeps generated prefixes well below the 255 character table
// name limit.
const maxPrefixName = 64

// IntegrationTestConfig controls RunIntegrationTest.
type IntegrationTestConfig struct {
	Port           int
	Require        bool          // fail instead of skip when DynamoDB Local is down
	CleanupTimeout time.Duration // bound on dropping the test tables
}

func DefaultIntegrationTestConfig() *IntegrationTestConfig {
	return &IntegrationTestConfig{
		Port:           DefaultLocalPort,
		CleanupTimeout: 30 * time.Second,
	}
}

// requireLocal returns the instance on port, or ends the test when it cannot be
// used. Short mode always skips.
func requireLocal(t *testing.T, port int, require bool) *LocalDynamoDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping DynamoDB Local test in short mode")
	}

	local := NewLocalDynamoDB(port)
	if err := local.Ping(context.Background()); err != nil {
		if require {
			t.Fatalf("DynamoDB Local required: %v", err)
		}
		t.Skipf("DynamoDB Local unavailable: %v", err)
	}
	return local
}

// WithLocalDynamoDB runs fn against DynamoDB Local on port, skipping the test
// when it is not running.
func WithLocalDynamoDB(t *testing.T, port int, fn func(local *LocalDynamoDB)) {
	t.Helper()
	fn(requireLocal(t, port, false))
}

func WithDefaultLocalDynamoDB(t *testing.T, fn func(local *LocalDynamoDB)) {
	t.Helper()
	WithLocalDynamoDB(t, DefaultLocalPort, fn)
}

// NewTablePrefix returns a table name prefix unique to this test run. Characters
// DynamoDB does not allow in table names are replaced with '-'.
func NewTablePrefix(t *testing.T) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		}
		return '-'
	}, t.Name())
	if len(name) > maxPrefixName {
		name = name[:maxPrefixName]
	}
	return fmt.Sprintf("test-%s-%d-", name, time.Now().UnixNano())
}

// RunIntegrationTest builds a Service over DynamoDB Local whose tables are
// private to the test, runs fn and drops the tables when the test ends.
func RunIntegrationTest(t *testing.T, config *IntegrationTestConfig, entities map[string]dynacrud.EntityDescriptor, fn func(svc *dynacrud.Service)) {
	t.Helper()
	if config == nil {
		config = DefaultIntegrationTestConfig()
	}
	local := requireLocal(t, config.Port, config.Require)

	prefix := NewTablePrefix(t)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.CleanupTimeout)
		defer cancel()
		if err := local.Cleanup(ctx, prefix); err != nil {
			t.Errorf("failed to drop tables %s*: %v", prefix, err)
		}
	})

	svc, err := dynacrud.New(context.Background(), local.Config(prefix, entities),
		dynacrud.WithClient(local.Client),
		dynacrud.WithLogger(zaptest.NewLogger(t)),
		dynacrud.WithMetadata(dynacrud.Metadata{ServiceName: "dynamock", LogLevel: "debug", Version: "test"}),
	)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	fn(svc)
}
