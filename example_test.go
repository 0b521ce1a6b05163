package dynacrud_test

import (
	"context"
	"fmt"

	"github.com/nisimpson/dynacrud"
	"github.com/nisimpson/dynacrud/dynamock"
	"go.uber.org/zap"
)

func ExampleService_ValidateDuplicate() {
	ctx := context.Background()
	cfg := dynacrud.Config{
		Defaults: dynacrud.Defaults{Create: true},
		Entities: map[string]dynacrud.EntityDescriptor{
			"countries": {
				Fields: map[string]dynacrud.Field{
					"id":          {Type: dynacrud.TypeString, HashKey: true, Generate: dynacrud.GenerateUUID},
					"name":        {Type: dynacrud.TypeString, Required: true},
					"countryCode": {Type: dynacrud.TypeString, Required: true},
				},
			},
		},
	}

	svc, err := dynacrud.New(ctx, cfg,
		dynacrud.WithClient(dynamock.NewMemoryClient()),
		dynacrud.WithLogger(zap.NewNop()),
		dynacrud.WithMetadata(dynacrud.Metadata{ServiceName: "example", LogLevel: "info", Version: "dev"}),
		dynacrud.WithIDGen(func() string { return "can" }),
	)
	if err != nil {
		panic(err)
	}

	canada, _ := svc.Create(ctx, "countries", dynacrud.Attributes{"name": "Canada", "countryCode": "CAN"})
	fmt.Println(canada.ID())

	err = svc.ValidateDuplicate(ctx, "countries", []string{"name", "countryCode"}, []any{"Canada", "CAN"})
	fmt.Println(dynacrud.IsConflict(err))

	canada, _ = svc.Update(ctx, canada, dynacrud.Attributes{"countryCode": "CA"})
	code, _ := canada.Get("countryCode")
	fmt.Println(code)

	err = svc.ValidateDuplicate(ctx, "countries", []string{"countryCode"}, []any{"CAN"})
	fmt.Println(err == nil)
	// Output:
	// can
	// true
	// CA
	// true
}
