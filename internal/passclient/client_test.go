package passclient_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventhub/internal/handler"
	"github.com/iliyamo/eventhub/internal/middleware"
	"github.com/iliyamo/eventhub/internal/model"
	"github.com/iliyamo/eventhub/internal/passclient"
	"github.com/iliyamo/eventhub/internal/repository"
	"github.com/iliyamo/eventhub/internal/router"
	"github.com/iliyamo/eventhub/internal/service"
	"github.com/iliyamo/eventhub/internal/utils"
)

const (
	secret = "client-test-secret"
	key    = "client-test-key"
)

// newPassService starts a pass service backed by a memory store, the way a
// PASS_STORE=memory instance would serve its peers.
func newPassService(t *testing.T) (*httptest.Server, *repository.MemoryPassStore) {
	t.Helper()
	store := repository.NewMemoryPassStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	e := echo.New()
	router.RegisterRoutes(e, store)
	ph := handler.NewPassHandler(
		service.NewIssuer(store, service.NewTokenGenerator("pass_"), nil, log, time.Second),
		service.NewVerifier(store, nil, log, time.Second),
		log,
	)
	router.RegisterStudent(e, ph, secret)
	router.RegisterStaff(e, ph, secret, pass)
	router.RegisterInternal(e, handler.NewInternalPassHandler(store, log), key, pass)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRemoteStoreLifecycle(t *testing.T) {
	srv, _ := newPassService(t)
	c := passclient.New(srv.URL, passclient.WithInternalKey(key))
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, found, err := c.FindLivePass(ctx, 42, 7); err != nil || found {
		t.Fatalf("FindLivePass before insert = %v, %v", found, err)
	}
	if err := c.Insert(ctx, "p_once", 42, 7); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	p, found, err := c.FindLivePass(ctx, 42, 7)
	if err != nil || !found || p.PassID != "p_once" {
		t.Fatalf("FindLivePass = %+v, %v, %v", p, found, err)
	}

	res, err := c.Verify(ctx, "p_once")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res != (model.VerifyResult{Valid: true, UserID: 42, EventID: 7}) {
		t.Fatalf("Verify = %+v", res)
	}
	if res, err := c.Verify(ctx, "p_once"); err != nil || res.Valid {
		t.Fatalf("second Verify = %+v, %v", res, err)
	}
	if _, found, err := c.FindLivePass(ctx, 42, 7); err != nil || found {
		t.Fatalf("FindLivePass after redemption = %v, %v", found, err)
	}
}

func TestRemoteStoreConflicts(t *testing.T) {
	srv, _ := newPassService(t)
	c := passclient.New(srv.URL, passclient.WithInternalKey(key))
	ctx := context.Background()

	if err := c.Insert(ctx, "p_a", 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.Insert(ctx, "p_b", 1, 1); !errors.Is(err, repository.ErrLivePassExists) {
		t.Fatalf("second live pass: err = %v", err)
	}
	if err := c.Insert(ctx, "p_a", 2, 2); !errors.Is(err, repository.ErrDuplicatePass) {
		t.Fatalf("reused id: err = %v", err)
	}
}

func TestRemoteStoreRejectsMalformed(t *testing.T) {
	srv, store := newPassService(t)
	c := passclient.New(srv.URL, passclient.WithInternalKey(key))
	ctx := context.Background()

	if _, _, err := c.FindLivePass(ctx, 0, 3); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("FindLivePass(0, 3): err = %v", err)
	}
	if err := c.Insert(ctx, " ", 1, 1); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("Insert blank id: err = %v", err)
	}
	if _, err := c.Verify(ctx, ""); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("Verify blank: err = %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("store holds %d passes", store.Len())
	}
}

func TestRemoteStoreWrongKey(t *testing.T) {
	srv, _ := newPassService(t)
	c := passclient.New(srv.URL, passclient.WithInternalKey("wrong"))

	_, _, err := c.FindLivePass(context.Background(), 1, 1)
	if !passclient.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("err = %v, want HTTP 401", err)
	}
	var he *passclient.HTTPError
	if !errors.As(err, &he) || !strings.Contains(he.Message, "internal key") {
		t.Fatalf("message not decoded from error body: %v", err)
	}
}

// TestIssuerOverRemoteStore runs the issuance service of one instance
// against the pass service of another.
func TestIssuerOverRemoteStore(t *testing.T) {
	srv, backing := newPassService(t)
	remote := passclient.New(srv.URL, passclient.WithInternalKey(key))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	iss := service.NewIssuer(remote, service.NewTokenGenerator("pass_"), nil, log, time.Second)
	ver := service.NewVerifier(remote, nil, log, time.Second)
	ctx := context.Background()

	first, err := iss.IssuePass(ctx, 2, 7)
	if err != nil || !first.Created {
		t.Fatalf("IssuePass = %+v, %v", first, err)
	}
	second, err := iss.IssuePass(ctx, 2, 7)
	if err != nil || second.Created || second.PassID != first.PassID {
		t.Fatalf("repeat IssuePass = %+v, %v", second, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	valid := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ver.Verify(ctx, first.PassID)
			if err != nil {
				t.Error(err)
				return
			}
			if res.Valid {
				mu.Lock()
				valid++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if valid != 1 {
		t.Fatalf("%d concurrent verifies succeeded, want 1", valid)
	}
	if backing.Len() != 1 {
		t.Fatalf("backing store holds %d passes, want 1", backing.Len())
	}
}

func TestRemoteStoreUnreachable(t *testing.T) {
	srv, _ := newPassService(t)
	url := srv.URL
	srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	iss := service.NewIssuer(passclient.New(url), service.NewTokenGenerator("pass_"), nil, log, time.Second)
	if _, err := iss.IssuePass(context.Background(), 2, 7); !errors.Is(err, service.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestPublicAPI(t *testing.T) {
	srv, _ := newPassService(t)
	ctx := context.Background()

	studentTok, err := utils.NewAccessToken(secret, 7, middleware.RoleStudent, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	staffTok, err := utils.NewAccessToken(secret, 100, middleware.RoleManager, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	student := passclient.New(srv.URL, passclient.WithSessionToken(studentTok.Token))
	staff := passclient.New(srv.URL, passclient.WithSessionToken(staffTok.Token))

	issued, err := student.IssuePass(ctx, 2)
	if err != nil {
		t.Fatalf("IssuePass: %v", err)
	}
	if !strings.HasPrefix(issued.PassID, "pass_") {
		t.Fatalf("passId %q", issued.PassID)
	}
	res, err := staff.RedeemPass(ctx, issued.PassID)
	if err != nil || res != (model.VerifyResult{Valid: true, UserID: 7, EventID: 2}) {
		t.Fatalf("RedeemPass = %+v, %v", res, err)
	}
	if _, err := student.RedeemPass(ctx, issued.PassID); !passclient.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("student redeem: err = %v, want 403", err)
	}
}
