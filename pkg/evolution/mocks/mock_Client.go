// Package mocks provides test doubles for the evolution client.
package mocks

import (
	"context"

	evolution "github.com/sells-group/aidiscovery-cli/pkg/evolution"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// SendText provides a mock function with given fields: ctx, number, text
func (_m *MockClient) SendText(ctx context.Context, number string, text string) (*evolution.SendResult, error) {
	ret := _m.Called(ctx, number, text)

	if len(ret) == 0 {
		panic("no return value specified for SendText")
	}

	var r0 *evolution.SendResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*evolution.SendResult, error)); ok {
		return rf(ctx, number, text)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *evolution.SendResult); ok {
		r0 = rf(ctx, number, text)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*evolution.SendResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, number, text)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
