package publish

import (
	"reflect"
	"testing"

	"github.com/sofmeright/slipway/src/meta"
)

func TestRef(t *testing.T) {
	m := &meta.Metadata{Name: "vector", Version: "0.30.0", SHA: "abc1234", Date: "20240115"}

	p := &Publisher{Repository: "acme/vector"}
	if got := p.Ref(m); got != "acme/vector:0.30.0_abc1234_20240115" {
		t.Errorf("Ref() = %q", got)
	}

	// Repository defaults to the package name.
	p = &Publisher{}
	if got := p.Ref(m); got != "vector:0.30.0_abc1234_20240115" {
		t.Errorf("Ref() = %q", got)
	}
}

func TestPushRefs(t *testing.T) {
	got := PushRefs([]string{"docker.io/acme", "ghcr.io/acme"}, "vector:0.30.0_abc1234_20240115")
	want := []string{
		"docker.io/acme/vector:0.30.0_abc1234_20240115",
		"ghcr.io/acme/vector:0.30.0_abc1234_20240115",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PushRefs() = %v", got)
	}

	if got := PushRefs(nil, "x:y"); len(got) != 0 {
		t.Errorf("expected empty refs, got %v", got)
	}
}
