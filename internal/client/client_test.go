package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/httpapi"
	apimw "github.com/hamed0406/heartbeat/internal/httpapi/middleware"
	"github.com/hamed0406/heartbeat/internal/repo/memory"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	srv := httpapi.NewServer(zap.NewNop(), store, store)
	srv.Now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	ts := httptest.NewServer(srv.Router(apimw.Keys{Admin: []string{"adm"}}, nil, 0, 0, 0, 0))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_RoundTrip(t *testing.T) {
	ts := newAPI(t)
	c := New(ts.URL+"/", "adm")
	ctx := context.Background()

	res, err := c.Ping(ctx, "nightly", "1h")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !res.OK || !res.NextDue.Equal(time.Unix(1_700_003_600, 0)) {
		t.Fatalf("ping result %+v", res)
	}
	if fr, err := c.Fail(ctx, "deploy"); err != nil || fr.Status != "overdue" {
		t.Fatalf("fail: %+v %v", fr, err)
	}

	list, err := c.List(ctx)
	if err != nil || len(list) != 2 || list[0].Slug != "deploy" || list[1].IntervalSecs != 3600 {
		t.Fatalf("list: %+v %v", list, err)
	}

	if err := c.Pause(ctx, "nightly"); err != nil {
		t.Fatal(err)
	}
	m, err := c.Get(ctx, "nightly")
	if err != nil || m.Status != "paused" {
		t.Fatalf("get: %+v %v", m, err)
	}
	if err := c.Resume(ctx, "nightly"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "nightly"); err != nil {
		t.Fatal(err)
	}
}

func TestClient_Errors(t *testing.T) {
	ts := newAPI(t)
	ctx := context.Background()

	var apiErr *Error
	err := New(ts.URL, "adm").Delete(ctx, "ghost")
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "monitor not found" {
		t.Fatalf("want 404 error, got %v", err)
	}

	_, err = New(ts.URL, "adm").Ping(ctx, "ok", "5s")
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("want 400 error, got %v", err)
	}

	_, err = New(ts.URL, "wrong").List(ctx)
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("want 403, got %v", err)
	}
}
