package store

import "testing"

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{name: "run", key: RunKey("1a2b3c4d"), want: "inspector:run:1a2b3c4d"},
		{name: "report", key: ReportKey("9f1c0b6e-1111-2222-3333-444455556666"), want: "inspector:report:9f1c0b6e-1111-2222-3333-444455556666"},
		{name: "empty id", key: Key{Kind: KindRun}, want: "inspector:run:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_RunsKey(t *testing.T) {
	if got := ReportKey("abc").RunsKey(); got != "inspector:report:abc:runs" {
		t.Errorf("RunsKey() = %q", got)
	}
}

func TestKey_KindsDoNotCollide(t *testing.T) {
	if RunKey("x").String() == ReportKey("x").String() {
		t.Error("run and report keys collide")
	}
}
