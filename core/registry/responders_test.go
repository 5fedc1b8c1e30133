package registry

import (
	"errors"
	"testing"

	"github.com/opensar/rescue/core/model"
)

func responder(id string, capacity int) model.Responder {
	return model.Responder{
		ID:       id,
		Location: model.Position{Lat: 34.05, Lon: -118.24},
		Capacity: capacity,
		Status:   model.ResponderAvailable,
	}
}

func TestUpsertAndAvailable(t *testing.T) {
	reg := NewResponderRegistry()
	if err := reg.Upsert(responder("r2", 5)); err != nil {
		t.Fatal(err)
	}
	if err := reg.Upsert(responder("r1", 3)); err != nil {
		t.Fatal(err)
	}
	busy := responder("r3", 2)
	busy.Status = model.ResponderEnroute
	if err := reg.Upsert(busy); err != nil {
		t.Fatal(err)
	}

	avail := reg.AvailableResponders()
	if len(avail) != 2 {
		t.Fatalf("available = %d, want 2", len(avail))
	}
	if avail[0].ID != "r1" || avail[1].ID != "r2" {
		t.Fatalf("expected id order r1, r2; got %s, %s", avail[0].ID, avail[1].ID)
	}
}

func TestUpsertRejectsInvalid(t *testing.T) {
	reg := NewResponderRegistry()
	bad := responder("", 5)
	var verr *model.ValidationError
	if err := reg.Upsert(bad); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpsertPreservesRoute(t *testing.T) {
	reg := NewResponderRegistry()
	if err := reg.Upsert(responder("r1", 5)); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetRoute("r1", []string{"v1", "v2"}); err != nil {
		t.Fatal(err)
	}
	// Status report without route info must not clobber the assignment.
	upd := responder("r1", 5)
	upd.Status = model.ResponderEnroute
	if err := reg.Upsert(upd); err != nil {
		t.Fatal(err)
	}
	got, _ := reg.Get("r1")
	if len(got.CurrentRoute) != 2 {
		t.Fatalf("route lost on upsert: %v", got.CurrentRoute)
	}
}

func TestSetRouteCapacity(t *testing.T) {
	reg := NewResponderRegistry()
	if err := reg.Upsert(responder("r1", 2)); err != nil {
		t.Fatal(err)
	}

	if err := reg.SetRoute("r1", []string{"v1", "v2"}); err != nil {
		t.Fatalf("route within capacity rejected: %v", err)
	}
	got, _ := reg.Get("r1")
	if got.Status != model.ResponderEnroute {
		t.Fatalf("status = %v, want enroute", got.Status)
	}

	err := reg.SetRoute("r1", []string{"v1", "v2", "v3"})
	var cerr *CapacityExceededError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
	if cerr.Capacity != 2 || cerr.Assigned != 3 {
		t.Fatalf("error detail = %+v", cerr)
	}
}

func TestSetRouteUnknownIDNoop(t *testing.T) {
	reg := NewResponderRegistry()
	if err := reg.SetRoute("ghost", []string{"v1"}); err != nil {
		t.Fatalf("unknown id should be a no-op, got %v", err)
	}
}

func TestSetAvailableClearsRoute(t *testing.T) {
	reg := NewResponderRegistry()
	if err := reg.Upsert(responder("r1", 5)); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetRoute("r1", []string{"v1"}); err != nil {
		t.Fatal(err)
	}
	reg.SetAvailable("r1")
	got, _ := reg.Get("r1")
	if got.Status != model.ResponderAvailable || len(got.CurrentRoute) != 0 {
		t.Fatalf("expected available with empty route, got %+v", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	reg := NewResponderRegistry()
	if err := reg.Upsert(responder("r1", 5)); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetRoute("r1", []string{"v1"}); err != nil {
		t.Fatal(err)
	}
	snap := reg.Snapshot()
	snap[0].CurrentRoute[0] = "mutated"
	got, _ := reg.Get("r1")
	if got.CurrentRoute[0] != "v1" {
		t.Fatal("snapshot aliases registry state")
	}
}
