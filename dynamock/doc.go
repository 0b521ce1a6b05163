// Package dynamock provides testing utilities for the dynacrud library.
//
// This package includes:
//   - Expectation-based mock DynamoDB client for unit testing
//   - In-memory DynamoDB client that evaluates condition and filter expressions
//   - Local DynamoDB integration utilities
//   - Fixture seeding through a dynacrud.Service
//
// # Mock Client
//
// The MockClient fails the test on any operation without an expectation:
//
//	mock := dynamock.NewMockClient(t)
//	mock.GetFunc = func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
//		return &dynamodb.GetItemOutput{}, nil
//	}
//
//	svc, err := dynacrud.New(ctx, cfg, dynacrud.WithClient(mock))
//
// Calls returns the operations invoked so far, which makes it easy to assert that
// a request was rejected before reaching DynamoDB.
//
// # Memory Client
//
// MemoryClient stores tables in memory and behaves like DynamoDB for the
// operations dynacrud uses, including conditional puts and paginated scans:
//
//	client := dynamock.NewMemoryClient()
//	cfg.Defaults.Create = true
//	svc, err := dynacrud.New(ctx, cfg, dynacrud.WithClient(client))
//
// # Local DynamoDB
//
//	dynamock.RunIntegrationTest(t, nil, entities, func(svc *dynacrud.Service) {
//		// tables are created with a unique prefix and deleted afterwards
//	})
//
// # Seeding
//
//	seeder := dynamock.NewSeeder(svc)
//	n, err := seeder.SeedFrom(ctx, strings.NewReader(`
//	countries:
//	  - {name: Canada, countryCode: CAN}
//	`))
package dynamock
