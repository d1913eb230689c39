package netgateway

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestSupportedTypes(t *testing.T) {
	want := []string{ResTypeGateway, ResTypeConnection}
	if got := SupportedTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("SupportedTypes() = %v, want %v", got, want)
	}
}

func TestNewResource_UnknownType(t *testing.T) {
	env, _ := newTestEnv(t, RevisionV2)
	if _, err := env.newResource("x", "OS::Neutron::Router", nil); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestResource_InitialState(t *testing.T) {
	env, _ := newTestEnv(t, RevisionV2)
	r, _ := env.newResource("gw", ResTypeGateway, gatewayProps())

	if action, status := r.State(); action != ActionInit || status != Complete {
		t.Errorf("state = %s/%s, want INIT/COMPLETE", action, status)
	}
	if r.FnGetRefID() != "gw" {
		t.Errorf("FnGetRefID = %q, want the resource name before creation", r.FnGetRefID())
	}
	v, err := r.FnGetAtt(context.Background(), "name")
	if err != nil || v != nil {
		t.Errorf("FnGetAtt before create = %v, %v; want nil, nil", v, err)
	}
	if health, _ := r.Check(context.Background()); health != StatusMissing {
		t.Errorf("Check = %s, want missing", health)
	}
}

func TestResource_Update(t *testing.T) {
	env, _ := newTestEnv(t, RevisionV2)
	r, _ := env.newResource("gw", ResTypeGateway, gatewayProps())
	if err := r.Update(context.Background(), gatewayProps()); !errors.Is(err, ErrUpdateReplace) {
		t.Errorf("Update err = %v, want ErrUpdateReplace", err)
	}
}

func TestResource_SnapshotRoundTrip(t *testing.T) {
	env, _ := newTestEnv(t, RevisionV2)
	rs := ResourceState{
		Type:       ResTypeConnection,
		Name:       "conn",
		ResourceID: "g:n:vlan:10",
		Action:     ActionCreate,
		Status:     Complete,
		Metadata:   map[string]string{metaPortID: "p"},
	}
	r, err := env.resourceFromState(rs)
	if err != nil {
		t.Fatalf("resourceFromState: %v", err)
	}
	if got := r.Snapshot(); !reflect.DeepEqual(got, rs) {
		t.Errorf("Snapshot = %+v, want %+v", got, rs)
	}

	// Snapshot metadata is a copy.
	snap := r.Snapshot()
	snap.Metadata["extra"] = "x"
	if _, ok := r.Metadata["extra"]; ok {
		t.Error("Snapshot shares the metadata map")
	}
}

func TestResourceFromState_DefaultsToCreated(t *testing.T) {
	env, _ := newTestEnv(t, RevisionV1)
	r, err := env.resourceFromState(ResourceState{Type: ResTypeGateway, Name: "gw", ResourceID: "id"})
	if err != nil {
		t.Fatalf("resourceFromState: %v", err)
	}
	if action, status := r.State(); action != ActionCreate || status != Complete {
		t.Errorf("state = %s/%s, want CREATE/COMPLETE", action, status)
	}
}

func TestResource_StateSetRecordsReason(t *testing.T) {
	env, _ := newTestEnv(t, RevisionV1)
	r, _ := env.newResource("gw", ResTypeGateway, gatewayProps())
	r.StateSet(ActionDelete, InProgress, "waiting")
	if r.StatusReason() != "waiting" {
		t.Errorf("StatusReason = %q, want waiting", r.StatusReason())
	}
}
