package dynamock

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/dynacrud"
	"golang.org/x/sync/errgroup"
)

// DefaultLocalPort is the default port for DynamoDB Local.
const DefaultLocalPort = 8000

const (
	tableTimeout = 30 * time.Second
	pingInterval = 500 * time.Millisecond
)

// LocalDynamoDB talks to a DynamoDB Local instance listening on localhost.
type LocalDynamoDB struct {
	Client   *dynamodb.Client
	Endpoint string
	Port     int
}

// NewLocalClient returns a client for DynamoDB Local on port. Region and
// credentials are placeholders; DynamoDB Local accepts any.
func NewLocalClient(port int) *dynamodb.Client {
	return dynamodb.New(dynamodb.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		BaseEndpoint: aws.String(localEndpoint(port)),
	})
}

func NewLocalDynamoDB(port int) *LocalDynamoDB {
	return &LocalDynamoDB{
		Client:   NewLocalClient(port),
		Endpoint: localEndpoint(port),
		Port:     port,
	}
}

func NewDefaultLocalDynamoDB() *LocalDynamoDB {
	return NewLocalDynamoDB(DefaultLocalPort)
}

func localEndpoint(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// Config returns a service configuration for entities on this instance. Table
// names get prefix; missing tables are created and awaited by dynacrud.New.
func (l *LocalDynamoDB) Config(prefix string, entities map[string]dynacrud.EntityDescriptor) dynacrud.Config {
	return dynacrud.Config{
		IsLocalDB:        true,
		LocalDatabaseURL: l.Endpoint,
		TablePrefix:      prefix,
		Defaults: dynacrud.Defaults{
			Create:        true,
			WaitForActive: dynacrud.WaitForActive{Enabled: true, Timeout: tableTimeout},
		},
		Entities: entities,
	}
}

// Ping reports why the instance cannot serve requests, or nil when it can. The
// port is dialed first so an idle port fails fast instead of going through SDK
// retries.
func (l *LocalDynamoDB) Ping(ctx context.Context) error {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", l.Port), 2*time.Second)
	if err != nil {
		return fmt.Errorf("nothing listening on port %d: %w", l.Port, err)
	}
	conn.Close()

	if _, err := l.Client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return fmt.Errorf("port %d is not DynamoDB: %w", l.Port, err)
	}
	return nil
}

func (l *LocalDynamoDB) IsAvailable(ctx context.Context) bool {
	return l.Ping(ctx) == nil
}

// WaitForAvailable polls Ping until it succeeds or timeout elapses.
func (l *LocalDynamoDB) WaitForAvailable(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		err := l.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("DynamoDB Local not available at %s after %v: %w", l.Endpoint, timeout, err)
		case <-ticker.C:
		}
	}
}

// CreateTable creates the table of m and waits until it is active.
func (l *LocalDynamoDB) CreateTable(ctx context.Context, m *dynacrud.Model) error {
	if _, err := l.Client.CreateTable(ctx, m.MarshalCreateTable()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", m.TableName, err)
	}
	waiter := dynamodb.NewTableExistsWaiter(l.Client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(m.TableName)}, tableTimeout)
}

// TableNames lists the tables whose name starts with prefix.
func (l *LocalDynamoDB) TableNames(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	paginator := dynamodb.NewListTablesPaginator(l.Client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		for _, name := range out.TableNames {
			if strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// DropTables deletes the named tables concurrently and waits until each is gone.
func (l *LocalDynamoDB) DropTables(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			input := &dynamodb.DeleteTableInput{TableName: aws.String(name)}
			if _, err := l.Client.DeleteTable(ctx, input); err != nil {
				return fmt.Errorf("failed to delete table %s: %w", name, err)
			}
			waiter := dynamodb.NewTableNotExistsWaiter(l.Client)
			return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: input.TableName}, tableTimeout)
		})
	}
	return g.Wait()
}

// Cleanup drops every table whose name starts with prefix. An empty prefix
// drops all tables.
func (l *LocalDynamoDB) Cleanup(ctx context.Context, prefix string) error {
	names, err := l.TableNames(ctx, prefix)
	if err != nil {
		return err
	}
	return l.DropTables(ctx, names...)
}
