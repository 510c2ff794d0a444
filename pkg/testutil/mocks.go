// Package testutil provides shared fixtures and mock implementations for
// tests across the registry.
package testutil

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/storage"
	"github.com/R3E-Network/app_registry/internal/httputil"
)

// SampleApps returns a fresh copy of the fixture collection.
func SampleApps() []application.Application {
	return []application.Application{
		{AppName: "appOne", AppData: application.Data{AppPath: "/appSix", AppOwner: "Osman", IsValid: true}},
		{AppName: "appTwo", AppData: application.Data{AppPath: "/appTwo", AppOwner: "Emirates", IsValid: false}},
	}
}

// MockStore is a CollectionStore with injectable failures and call counts.
type MockStore struct {
	mu       sync.Mutex
	apps     []application.Application
	loads    int
	persists int

	LoadErr    error
	PersistErr error
}

var _ storage.CollectionStore = (*MockStore)(nil)

// NewMockStore creates a mock store holding apps.
func NewMockStore(apps []application.Application) *MockStore {
	return &MockStore{apps: application.Clone(apps)}
}

// Load returns the held collection or LoadErr.
func (m *MockStore) Load(_ context.Context) ([]application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return application.Clone(m.apps), nil
}

// Persist replaces the held collection unless PersistErr is set.
func (m *MockStore) Persist(_ context.Context, apps []application.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persists++
	if m.PersistErr != nil {
		return m.PersistErr
	}
	m.apps = application.Clone(apps)
	return nil
}

// Calls returns how many times Load and Persist ran.
func (m *MockStore) Calls() (loads, persists int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads, m.persists
}

// UpstreamCall records one request made through MockUpstream.
type UpstreamCall struct {
	Path  string
	Query url.Values
}

// MockUpstream answers gateway requests with a canned response.
type MockUpstream struct {
	mu    sync.Mutex
	calls []UpstreamCall

	Status int
	Body   string
	Err    error
}

// NewMockUpstream creates an upstream that answers 200 with body.
func NewMockUpstream(body string) *MockUpstream {
	return &MockUpstream{Status: http.StatusOK, Body: body}
}

// Get records the call and returns the canned response.
func (m *MockUpstream) Get(_ context.Context, path string, query url.Values) (*httputil.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, UpstreamCall{Path: path, Query: query})
	if m.Err != nil {
		return nil, m.Err
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json; charset=utf-8")
	return &httputil.Response{StatusCode: m.Status, Header: header, Body: []byte(m.Body)}, nil
}

// Calls returns the recorded requests.
func (m *MockUpstream) Calls() []UpstreamCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpstreamCall(nil), m.calls...)
}
