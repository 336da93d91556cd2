package mocks

import (
	"context"

	"cmsapi/internal/model"
	"cmsapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) Create(ctx context.Context, collection string, fields map[string]string) (*model.Document, error) {
	args := m.Called(ctx, collection, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockContentRepository) Upsert(ctx context.Context, collection, id string, fields map[string]string) (*model.Document, error) {
	args := m.Called(ctx, collection, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockContentRepository) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockContentRepository) List(ctx context.Context, collection string, q repository.ListQuery) ([]model.Document, error) {
	args := m.Called(ctx, collection, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockContentRepository) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}
