package dynacrud

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Service exposes the data access operations over the tables of a Config. A
// Service is safe for concurrent use; its table models are fixed when New returns.
type Service struct {
	client   DynamoDBClient
	models   map[string]*Model
	defaults Defaults

	metadata Metadata
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  *Metrics
	tick     Clock
	newID    func() string
}

// Option configures optional behavior of a Service.
type Option func(*Service)

// WithClient uses client instead of building one from the Config.
func WithClient(client DynamoDBClient) Option {
	return func(s *Service) { s.client = client }
}

// WithLogger sets the logger. The default logger is built from the metadata log level.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTracerProvider sets the tracer provider. The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMetrics sets the metrics collectors. The default registers them on a
// registry owned by the service.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMetadata overrides the metadata read from the environment.
func WithMetadata(md Metadata) Option {
	return func(s *Service) { s.metadata = md }
}

// WithClock sets the clock used for generated times, timestamps and durations.
func WithClock(tick Clock) Option {
	return func(s *Service) { s.tick = tick }
}

// WithIDGen sets the generator used for "uuid" field values.
func WithIDGen(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New validates cfg, builds a table model for every entity and provisions the
// tables according to cfg.Defaults. New returns only after every model is built
// and provisioning has finished, so the returned Service is ready for use.
func New(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		models:   make(map[string]*Model, len(cfg.Entities)),
		defaults: cfg.Defaults,
		tick:     DefaultClock,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metadata == (Metadata{}) {
		md, err := LoadMetadata()
		if err != nil {
			return nil, err
		}
		s.metadata = md
	}
	if s.logger == nil {
		logger, err := NewLogger(s.metadata.LogLevel)
		if err != nil {
			return nil, err
		}
		s.logger = logger
	}
	s.logger = s.logger.Named("dynacrud").With(
		zap.String("service", s.metadata.ServiceName),
		zap.String("version", s.metadata.Version),
	)
	if s.tracer == nil {
		s.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	if s.metrics == nil {
		m, err := NewMetrics("dynacrud", nil)
		if err != nil {
			return nil, err
		}
		s.metrics = m
	}

	modelOpts := []ModelOption{WithModelClock(s.tick)}
	if s.newID != nil {
		modelOpts = append(modelOpts, WithIDGenerator(s.newID))
	}
	for name, desc := range cfg.Entities {
		m, err := NewModel(name, cfg.TablePrefix+name, desc, modelOpts...)
		if err != nil {
			return nil, err
		}
		s.models[name] = m
	}

	if s.client == nil {
		client, err := NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.client = client
	}

	if err := s.EnsureTables(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("service ready",
		zap.Strings("tables", s.Tables()),
		zap.Bool("local", cfg.IsLocalDB),
	)
	return s, nil
}

// Tables returns the logical table names in sorted order.
func (s *Service) Tables() []string {
	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Model returns the model of the named table.
func (s *Service) Model(table string) (*Model, bool) {
	m, ok := s.models[table]
	return m, ok
}

// Metrics returns the collectors updated by the service operations.
func (s *Service) Metrics() *Metrics { return s.metrics }

func (s *Service) model(op, table string) (*Model, error) {
	m, ok := s.models[table]
	if !ok {
		return nil, badRequest(op, "unknown table %s", table)
	}
	return m, nil
}

// Search returns every record of table matching filter. The result is an empty
// slice, never nil, when nothing matches.
func (s *Service) Search(ctx context.Context, table string, filter Filter) ([]*Record, error) {
	return observe(ctx, s, "Search", table, func(ctx context.Context) ([]*Record, error) {
		records := []*Record{}
		cursor := ""
		for {
			page, err := s.searchPage(ctx, "Search", table, filter, PageOptions{Cursor: cursor})
			if err != nil {
				return nil, err
			}
			records = append(records, page.Records...)
			if page.Cursor == "" {
				return records, nil
			}
			cursor = page.Cursor
		}
	})
}

// SearchPage returns one page of the records of table matching filter. Because
// the limit applies before filtering, a page may hold fewer records than the
// limit, or none, while a cursor to further pages is still returned.
func (s *Service) SearchPage(ctx context.Context, table string, filter Filter, opts PageOptions) (Page, error) {
	return observe(ctx, s, "SearchPage", table, func(ctx context.Context) (Page, error) {
		return s.searchPage(ctx, "SearchPage", table, filter, opts)
	})
}

func (s *Service) searchPage(ctx context.Context, op, table string, filter Filter, opts PageOptions) (Page, error) {
	m, err := s.model(op, table)
	if err != nil {
		return Page{}, err
	}
	startKey, err := DecodeCursor(opts.Cursor)
	if err != nil {
		return Page{}, badRequest(op, "invalid cursor: %v", err)
	}

	var (
		items   []Item
		lastKey Item
	)
	if m.usesKey(filter) {
		input, err := m.MarshalQuery(filter, opts.Limit, startKey)
		if err != nil {
			return Page{}, badRequest(op, "invalid filter: %v", err)
		}
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return Page{}, err
		}
		items, lastKey = out.Items, out.LastEvaluatedKey
	} else {
		input, err := m.MarshalScan(filter, opts.Limit, startKey)
		if err != nil {
			return Page{}, badRequest(op, "invalid filter: %v", err)
		}
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return Page{}, err
		}
		items, lastKey = out.Items, out.LastEvaluatedKey
	}

	page := Page{Records: make([]*Record, 0, len(items))}
	for _, item := range items {
		attrs, err := m.decodeItem(item)
		if err != nil {
			return Page{}, err
		}
		page.Records = append(page.Records, newRecord(m, attrs))
	}
	if page.Cursor, err = EncodeCursor(lastKey); err != nil {
		return Page{}, err
	}
	return page, nil
}

// GetByID returns the record of table whose primary key equals id.
func (s *Service) GetByID(ctx context.Context, table string, id any) (*Record, error) {
	return observe(ctx, s, "GetByID", table, func(ctx context.Context) (*Record, error) {
		m, err := s.model("GetByID", table)
		if err != nil {
			return nil, err
		}
		input, err := m.MarshalGet(id)
		if err != nil {
			return nil, badRequest("GetByID", "invalid id %v: %v", id, err)
		}
		out, err := s.client.GetItem(ctx, input)
		if err != nil {
			return nil, err
		}
		if len(out.Item) == 0 {
			return nil, notFound("GetByID", table, id)
		}
		attrs, err := m.decodeItem(out.Item)
		if err != nil {
			return nil, err
		}
		return newRecord(m, attrs), nil
	})
}

// ValidateDuplicate returns a Conflict error when any record of table has every
// keys[i] equal to values[i], and nil when none does. keys and values must have
// the same length and no key may repeat; otherwise a BadRequest error is
// returned before any backend call is made.
func (s *Service) ValidateDuplicate(ctx context.Context, table string, keys []string, values []any) error {
	_, err := observe(ctx, s, "ValidateDuplicate", table, func(ctx context.Context) (struct{}, error) {
		if len(keys) != len(values) {
			return struct{}{}, badRequest("ValidateDuplicate",
				"keys and values length mismatch: %d keys, %d values", len(keys), len(values))
		}
		if len(keys) == 0 {
			return struct{}{}, badRequest("ValidateDuplicate", "at least one key is required")
		}

		filter := make(Filter, len(keys))
		for i, key := range keys {
			if _, dup := filter[key]; dup {
				return struct{}{}, badRequest("ValidateDuplicate", "key %s given more than once", key)
			}
			filter[key] = Eq(values[i])
		}

		cursor := ""
		for {
			page, err := s.searchPage(ctx, "ValidateDuplicate", table, filter, PageOptions{Cursor: cursor})
			if err != nil {
				return struct{}{}, err
			}
			if len(page.Records) > 0 {
				return struct{}{}, conflict("ValidateDuplicate", table, keys, values)
			}
			if page.Cursor == "" {
				return struct{}{}, nil
			}
			cursor = page.Cursor
		}
	})
	return err
}

// Create writes a new record to table. Defaults and generated values fill absent
// fields. Creating a record whose primary key already exists fails with the
// backend's conditional check error.
func (s *Service) Create(ctx context.Context, table string, data Attributes) (*Record, error) {
	return observe(ctx, s, "Create", table, func(ctx context.Context) (*Record, error) {
		m, err := s.model("Create", table)
		if err != nil {
			return nil, err
		}
		attrs, err := m.prepare(data, true)
		if err != nil {
			return nil, badRequest("Create", "%s: %v", table, err)
		}
		return s.put(ctx, m, attrs, true)
	})
}

// Update overwrites the given fields of rec, persists the whole record and
// returns rec. The primary key cannot be changed.
func (s *Service) Update(ctx context.Context, rec *Record, data Attributes) (*Record, error) {
	return observe(ctx, s, "Update", rec.Table(), func(ctx context.Context) (*Record, error) {
		if rec == nil {
			return nil, badRequest("Update", "record is required")
		}
		m, err := s.model("Update", rec.table)
		if err != nil {
			return nil, err
		}
		if id, ok := data[m.HashKey]; ok && !m.sameKey(id, rec.ID()) {
			return nil, badRequest("Update", "%s: cannot change primary key %s", rec.table, m.HashKey)
		}

		merged := rec.Attributes()
		for k, v := range data {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		attrs, err := m.prepare(merged, false)
		if err != nil {
			return nil, badRequest("Update", "%s: %v", rec.table, err)
		}

		stored, err := s.put(ctx, m, attrs, false)
		if err != nil {
			return nil, err
		}
		rec.attrs = stored.attrs
		return rec, nil
	})
}

// Delete removes rec from its table and returns it.
func (s *Service) Delete(ctx context.Context, rec *Record) (*Record, error) {
	return observe(ctx, s, "Delete", rec.Table(), func(ctx context.Context) (*Record, error) {
		if rec == nil {
			return nil, badRequest("Delete", "record is required")
		}
		m, err := s.model("Delete", rec.table)
		if err != nil {
			return nil, err
		}
		input, err := m.MarshalDelete(rec.ID())
		if err != nil {
			return nil, err
		}
		if _, err := s.client.DeleteItem(ctx, input); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// put writes attrs and returns the record as it will be read back.
func (s *Service) put(ctx context.Context, m *Model, attrs Attributes, mustNotExist bool) (*Record, error) {
	input, err := m.MarshalPut(attrs, mustNotExist)
	if err != nil {
		return nil, err
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		return nil, err
	}
	stored, err := m.decodeItem(input.Item)
	if err != nil {
		return nil, err
	}
	return newRecord(m, stored), nil
}
