// Package dynacrud provides a configuration-driven data access layer over the AWS
// SDK for Go v2 DynamoDB client.
//
// Tables are declared as entity descriptors, either in Go or in a YAML file, and a
// single Service exposes the same operations over every table: Search, GetByID,
// ValidateDuplicate, Create, Update and Delete.
//
// # Configuration
//
//	awsConfig:
//	  region: us-east-1
//	isLocalDB: true
//	localDatabaseURL: http://localhost:8000
//	defaults:
//	  create: true
//	  waitForActive:
//	    enabled: true
//	    timeout: 1m
//	entities:
//	  countries:
//	    fields:
//	      id:          {type: string, hashKey: true, generate: uuid}
//	      name:        {type: string, required: true}
//	      countryCode: {type: string, required: true}
//	      isDeleted:   {type: boolean, default: false}
//	    options:
//	      throughput: {read: 5, write: 5}
//
// # Basic Usage
//
//	cfg, err := dynacrud.LoadConfig("dynacrud.yaml")
//	svc, err := dynacrud.New(ctx, cfg)
//
//	canada, err := svc.Create(ctx, "countries", dynacrud.Attributes{
//	    "name":        "Canada",
//	    "countryCode": "CAN",
//	})
//
//	// returns an error matching dynacrud.ErrConflict
//	err = svc.ValidateDuplicate(ctx, "countries", []string{"name", "countryCode"}, []any{"Canada", "CAN"})
//
//	_, err = svc.Update(ctx, canada, dynacrud.Attributes{"countryCode": "CA"})
//
// # Searching
//
// A Filter maps field names to conditions, all of which must hold:
//
//	records, err := svc.Search(ctx, "countries", dynacrud.Filter{
//	    "name":      dynacrud.BeginsWith("Can"),
//	    "isDeleted": dynacrud.Eq(false),
//	})
//
// Filters that pin the hash key with Eq are served by a Query; all others by a
// Scan. SearchPage returns one page at a time with an opaque cursor.
//
// # Errors
//
// Failures detected by the service are *Error values of kind NotFound, BadRequest
// or Conflict and match ErrNotFound, ErrBadRequest and ErrConflict with errors.Is.
// Errors from DynamoDB are returned unchanged.
package dynacrud
