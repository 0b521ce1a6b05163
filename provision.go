package dynacrud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EnsureTables provisions every table according to the service defaults: missing
// tables are created when Defaults.Create is set, existing tables have their
// capacity reconciled when Defaults.Update is set, and when
// Defaults.WaitForActive is enabled EnsureTables blocks until all tables are ACTIVE.
// Tables are provisioned concurrently; the first failure is returned.
func (s *Service) EnsureTables(ctx context.Context) error {
	d := s.defaults
	if !d.Create && !d.Update && !d.WaitForActive.Enabled {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range s.Tables() {
		m := s.models[name]
		g.Go(func() error {
			return s.ensureTable(ctx, m)
		})
	}
	return g.Wait()
}

func (s *Service) ensureTable(ctx context.Context, m *Model) error {
	logger := s.logger.With(zap.String("table", m.TableName))

	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(m.TableName),
	})

	var notFound *types.ResourceNotFoundException
	switch {
	case errors.As(err, &notFound):
		if !s.defaults.Create {
			logger.Warn("table does not exist and creation is disabled")
			return nil
		}
		if _, err := s.client.CreateTable(ctx, m.MarshalCreateTable()); err != nil {
			return fmt.Errorf("failed to create table %s: %w", m.TableName, err)
		}
		logger.Info("table created")
	case err != nil:
		return fmt.Errorf("failed to describe table %s: %w", m.TableName, err)
	case s.defaults.Update:
		if input, ok := m.MarshalUpdateTable(out.Table); ok {
			if _, err := s.client.UpdateTable(ctx, input); err != nil {
				return fmt.Errorf("failed to update table %s: %w", m.TableName, err)
			}
			logger.Info("table updated")
		}
	}

	if !s.defaults.WaitForActive.Enabled {
		return nil
	}
	timeout := s.defaults.WaitForActive.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(m.TableName)}, timeout); err != nil {
		return fmt.Errorf("failed waiting for table %s: %w", m.TableName, err)
	}
	logger.Debug("table active")
	return nil
}
