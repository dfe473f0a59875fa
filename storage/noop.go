package storage

import "context"

// NoopStorage stores nothing.
type NoopStorage struct {
}

func (s *NoopStorage) Open(ctx context.Context) error {
	return nil
}

func (s *NoopStorage) Close(ctx context.Context) error {
	return nil
}

func (s *NoopStorage) WriteReport(ctx context.Context, r *Report) error {
	return nil
}

func (s *NoopStorage) GetReport(ctx context.Context, id string) (*Report, error) {
	return nil, NotFound
}

func (s *NoopStorage) ListReports(ctx context.Context) ([]*Report, error) {
	return nil, nil
}
