package relay

import "testing"

func TestParseEventValid(t *testing.T) {
	ev, ok := parseEvent([]byte(`{"type":"join","userId":"u1","userInfo":{"name":"Ada"}}`))
	if !ok {
		t.Fatal("expected a well-formed envelope to parse")
	}
	if ev.Type != EventJoin || ev.UserID != "u1" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if string(ev.UserInfo) != `{"name":"Ada"}` {
		t.Errorf("userInfo not preserved verbatim: %s", ev.UserInfo)
	}
}

func TestParseEventRejectsMalformed(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("not json"),
		[]byte(`{"type":`),
		[]byte(`[]`),
		[]byte(`"just a string"`),
		[]byte(`{"userId":"u1"}`), // no type tag
		[]byte(`{"type":""}`),
	}
	for _, raw := range cases {
		if _, ok := parseEvent(raw); ok {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}

func TestParseEventUnknownTypeStillParses(t *testing.T) {
	// Unknown types parse fine; the router is what drops them.
	ev, ok := parseEvent([]byte(`{"type":"telemetry"}`))
	if !ok {
		t.Fatal("expected unknown type to parse at the envelope level")
	}
	if ev.Type != EventType("telemetry") {
		t.Errorf("unexpected type %q", ev.Type)
	}
}
