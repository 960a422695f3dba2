// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestNewHTTPTransportRejectsNilHandler(t *testing.T) {
	if _, err := NewHTTPTransport(nil, nil); err == nil {
		t.Error("expected an error for a nil handler")
	}
}

func TestNewHTTPTransportDefaultsBase(t *testing.T) {
	tr, err := NewHTTPTransport(func(req *http.Request, resp *http.Response) (oauth2.TokenSource, error) {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"}), nil
	}, nil)
	if err != nil {
		t.Fatalf("NewHTTPTransport: %v", err)
	}
	if tr.opts.Base != http.DefaultTransport {
		t.Errorf("Base = %v, want http.DefaultTransport", tr.opts.Base)
	}
}

type fakeRoundTripper struct {
	status int
	calls  int
}

func (f *fakeRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	rec := httptest.NewRecorder()
	rec.WriteHeader(f.status)
	return rec.Result(), nil
}

func TestHTTPTransportPassesThroughNonUnauthorized(t *testing.T) {
	base := &fakeRoundTripper{status: http.StatusOK}
	tr, err := NewHTTPTransport(func(req *http.Request, resp *http.Response) (oauth2.TokenSource, error) {
		t.Fatal("handler should not be called for a 200 response")
		return nil, nil
	}, &HTTPTransportOptions{Base: base})
	if err != nil {
		t.Fatalf("NewHTTPTransport: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if base.calls != 1 {
		t.Errorf("base called %d times, want 1", base.calls)
	}
}

func TestHTTPTransportInvokesHandlerOn401(t *testing.T) {
	base := &fakeRoundTripper{status: http.StatusUnauthorized}
	handlerCalls := 0
	tr, err := NewHTTPTransport(func(req *http.Request, resp *http.Response) (oauth2.TokenSource, error) {
		handlerCalls++
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"}), nil
	}, &HTTPTransportOptions{Base: base})
	if err != nil {
		t.Fatalf("NewHTTPTransport: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if handlerCalls != 1 {
		t.Errorf("handler called %d times, want 1", handlerCalls)
	}
	if _, ok := tr.opts.Base.(*oauth2.Transport); !ok {
		t.Errorf("Base = %T, want *oauth2.Transport after authorization", tr.opts.Base)
	}
}

func TestHTTPTransportPropagatesHandlerError(t *testing.T) {
	base := &fakeRoundTripper{status: http.StatusUnauthorized}
	wantErr := errors.New("authorize failed")
	tr, err := NewHTTPTransport(func(req *http.Request, resp *http.Response) (oauth2.TokenSource, error) {
		return nil, wantErr
	}, &HTTPTransportOptions{Base: base})
	if err != nil {
		t.Fatalf("NewHTTPTransport: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	if _, err := tr.RoundTrip(req); !errors.Is(err, wantErr) {
		t.Errorf("RoundTrip error = %v, want %v", err, wantErr)
	}
}

type fakeTokenSource struct {
	token *oauth2.Token
	err   error
}

func (f *fakeTokenSource) Token() (*oauth2.Token, error) { return f.token, f.err }

type recordingTokenStore struct {
	saved []*oauth2.Token
}

func (r *recordingTokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	r.saved = append(r.saved, tok)
	return nil
}

func TestPersistentTokenSourceSavesOnSuccess(t *testing.T) {
	store := &recordingTokenStore{}
	tok := &oauth2.Token{AccessToken: "abc"}
	ts := NewPersistentTokenSource(context.Background(), &fakeTokenSource{token: tok}, store)
	got, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != tok {
		t.Errorf("Token() = %v, want %v", got, tok)
	}
	if len(store.saved) != 1 || store.saved[0] != tok {
		t.Errorf("store.saved = %v, want [%v]", store.saved, tok)
	}
}

func TestPersistentTokenSourcePropagatesError(t *testing.T) {
	store := &recordingTokenStore{}
	wantErr := errors.New("refresh failed")
	ts := NewPersistentTokenSource(context.Background(), &fakeTokenSource{err: wantErr}, store)
	if _, err := ts.Token(); !errors.Is(err, wantErr) {
		t.Errorf("Token error = %v, want %v", err, wantErr)
	}
	if len(store.saved) != 0 {
		t.Errorf("store.saved = %v, want empty on error", store.saved)
	}
}

func TestPersistentTokenSourcePropagatesSaveError(t *testing.T) {
	saveErr := errors.New("disk full")
	store := &savingErrorStore{err: saveErr}
	ts := NewPersistentTokenSource(context.Background(), &fakeTokenSource{token: &oauth2.Token{AccessToken: "x"}}, store)
	if _, err := ts.Token(); !errors.Is(err, saveErr) {
		t.Errorf("Token error = %v, want %v", err, saveErr)
	}
}

type savingErrorStore struct{ err error }

func (s *savingErrorStore) Save(ctx context.Context, tok *oauth2.Token) error { return s.err }
